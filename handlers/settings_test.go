package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/models"
	"github.com/sublyy/sublyy-backend/internal/tokens"
	"github.com/sublyy/sublyy-backend/internal/users"
)

type fakeNotifier struct {
	pushed map[string][]models.Settings
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{pushed: map[string][]models.Settings{}}
}

func (f *fakeNotifier) NotifySettingsUpdated(userID string, settings models.Settings) {
	f.pushed[userID] = append(f.pushed[userID], settings)
}

type settingsFixture struct {
	cfg      *config.Config
	users    *users.Service
	notifier *fakeNotifier
	router   *gin.Engine
}

func newSettingsFixture(t *testing.T) *settingsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	usvc := users.NewService(users.NewMemoryRepository())
	n := newFakeNotifier()
	r := gin.New()
	NewSettingsHandler(cfg, usvc, n, nil).Register(r.Group("/api"))
	return &settingsFixture{cfg: cfg, users: usvc, notifier: n, router: r}
}

func (f *settingsFixture) signup(t *testing.T, username, email string) *models.User {
	t.Helper()
	u, err := f.users.Signup(tContext(t), username, email, "pw")
	require.NoError(t, err)
	return u
}

func (f *settingsFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		access, _, err := tokens.Issue(f.cfg, userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+access)
	}
	rw := httptest.NewRecorder()
	f.router.ServeHTTP(rw, req)
	return rw
}

func TestGetSettings(t *testing.T) {
	f := newSettingsFixture(t)
	u := f.signup(t, "alice", "alice@example.com")

	rw := f.do(t, http.MethodGet, "/api/user/settings", u.ID, nil)
	require.Equal(t, http.StatusOK, rw.Code)

	var resp struct {
		Username string          `json:"username"`
		Email    string          `json:"email"`
		Settings models.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.Equal(t, "alice", resp.Username)
	require.Equal(t, "USD", resp.Settings.Currency)
	require.Equal(t, "enabled", resp.Settings.Notifications)
}

func TestGetSettings_UserGone(t *testing.T) {
	f := newSettingsFixture(t)
	rw := f.do(t, http.MethodGet, "/api/user/settings", "no-such-user", nil)
	require.Equal(t, http.StatusNotFound, rw.Code)
}

func TestGetSettings_RequiresAuth(t *testing.T) {
	f := newSettingsFixture(t)
	rw := f.do(t, http.MethodGet, "/api/user/settings", "", nil)
	require.Equal(t, http.StatusUnauthorized, rw.Code)
}

func TestUpdateSettings_PushesToOwnerOnly(t *testing.T) {
	f := newSettingsFixture(t)
	a := f.signup(t, "alice", "alice@example.com")
	b := f.signup(t, "bob", "bob@example.com")

	rw := f.do(t, http.MethodPut, "/api/user/settings", a.ID, gin.H{
		"settings": gin.H{"currency": "gbp", "notifications": "disabled"},
	})
	require.Equal(t, http.StatusOK, rw.Code)

	var resp struct {
		Settings models.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.Equal(t, "GBP", resp.Settings.Currency)
	require.Equal(t, "disabled", resp.Settings.Notifications)

	// only user A's connection received the event
	require.Len(t, f.notifier.pushed[a.ID], 1)
	require.Equal(t, "GBP", f.notifier.pushed[a.ID][0].Currency)
	require.Empty(t, f.notifier.pushed[b.ID])
}

func TestUpdateSettings_InvalidValues(t *testing.T) {
	f := newSettingsFixture(t)
	u := f.signup(t, "carol", "carol@example.com")

	rw := f.do(t, http.MethodPut, "/api/user/settings", u.ID, gin.H{
		"settings": gin.H{"notifications": "sometimes"},
	})
	require.Equal(t, http.StatusBadRequest, rw.Code)
	require.Empty(t, f.notifier.pushed[u.ID])
}

func TestUpdateSettings_PartialProfileUpdate(t *testing.T) {
	f := newSettingsFixture(t)
	u := f.signup(t, "dave", "dave@example.com")

	rw := f.do(t, http.MethodPut, "/api/user/settings", u.ID, gin.H{"username": "david"})
	require.Equal(t, http.StatusOK, rw.Code)

	var resp struct {
		Username string          `json:"username"`
		Email    string          `json:"email"`
		Settings models.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.Equal(t, "david", resp.Username)
	require.Equal(t, "dave@example.com", resp.Email)
	// untouched settings keep their defaults
	require.Equal(t, "USD", resp.Settings.Currency)
}

func TestUploadProfilePicture_StorageUnavailable(t *testing.T) {
	f := newSettingsFixture(t)
	u := f.signup(t, "erin", "erin@example.com")
	rw := f.do(t, http.MethodPost, "/api/user/profile-picture", u.ID, nil)
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
}
