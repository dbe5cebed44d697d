package realtime

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sublyy/sublyy-backend/internal/config"
	"github.com/sublyy/sublyy-backend/internal/models"
)

// overlapConn fails the test if two WriteJSON calls ever run at the same
// time, which the underlying websocket library does not allow.
type overlapConn struct {
	writers int32
	overlap int32
	count   int32
}

func (c *overlapConn) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&c.writers, 1) > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.writers, -1)
	atomic.AddInt32(&c.count, 1)
	return nil
}

func (c *overlapConn) Close() error { return nil }

func TestNotifySettingsUpdated_SerializesConcurrentPushes(t *testing.T) {
	h := NewHub(&config.Config{})
	raw := &overlapConn{}
	h.registry.Register("u1", &safeConn{conn: raw})

	const pushes = 16
	var wg sync.WaitGroup
	for i := 0; i < pushes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.NotifySettingsUpdated("u1", models.Settings{Currency: "USD"})
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&raw.overlap) != 0 {
		t.Fatal("two writes reached the connection concurrently")
	}
	if got := atomic.LoadInt32(&raw.count); got != pushes {
		t.Fatalf("delivered %d events, want %d", got, pushes)
	}
}
