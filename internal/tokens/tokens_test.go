package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/sublyy/sublyy-backend/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "access-secret-32-bytes-xxxxxxxxxxxxx"
	cfg.JWT.RefreshSecret = "refresh-secret-32-bytes-yyyyyyyyyyyy"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	return cfg
}

func TestIssueAndVerify(t *testing.T) {
	cfg := testConfig()
	access, refresh, err := Issue(cfg, "user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	uid, err := VerifyAccess(cfg, access)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if uid != "user-123" {
		t.Fatalf("unexpected userId: got=%q want=%q", uid, "user-123")
	}
	uid, err = VerifyRefresh(cfg, refresh)
	if err != nil {
		t.Fatalf("VerifyRefresh error: %v", err)
	}
	if uid != "user-123" {
		t.Fatalf("unexpected userId from refresh: %q", uid)
	}
}

// Access and refresh tokens use distinct secrets; neither may verify
// under the other's secret.
func TestVerify_CrossSecretRejected(t *testing.T) {
	cfg := testConfig()
	access, refresh, err := Issue(cfg, "user-x")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := VerifyRefresh(cfg, access); err == nil {
		t.Fatalf("expected access token to fail refresh verification")
	}
	if _, err := VerifyAccess(cfg, refresh); err == nil {
		t.Fatalf("expected refresh token to fail access verification")
	}
}

func TestVerify_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTokenTTL = 1 * time.Second
	access, _, err := Issue(cfg, "u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	time.Sleep(2 * time.Second)
	if _, err := VerifyAccess(cfg, access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after expiry, got: %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	cfg := testConfig()
	for _, tok := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := VerifyAccess(cfg, tok); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for %q, got: %v", tok, err)
		}
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	cfg := testConfig()
	access, _, err := Issue(cfg, "user-t")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	parts := strings.Split(access, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := base64.RawURLEncoding.DecodeString(parts[1])
	payload := strings.Replace(string(payloadBytes), "user-t", "attacker", 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(payload))
	tampered := strings.Join(parts, ".")
	if _, err := VerifyAccess(cfg, tampered); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	cfg := testConfig()
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"userId":"u-none","exp":9999999999}`))
	tok := headerEnc + "." + payloadEnc + "."
	if _, err := VerifyAccess(cfg, tok); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestRefresh_IssuesAccessForSameUser(t *testing.T) {
	cfg := testConfig()
	_, refresh, err := Issue(cfg, "user-r")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	access, err := Refresh(cfg, refresh)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	uid, err := VerifyAccess(cfg, access)
	if err != nil {
		t.Fatalf("VerifyAccess error: %v", err)
	}
	if uid != "user-r" {
		t.Fatalf("refreshed access token bound to wrong user: %q", uid)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	cfg := testConfig()
	if _, err := Refresh(cfg, "bogus"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got: %v", err)
	}
	// an access token is not a refresh token
	access, _, _ := Issue(cfg, "u")
	if _, err := Refresh(cfg, access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for access token, got: %v", err)
	}
}
