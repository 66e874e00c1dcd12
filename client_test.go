package renderworker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cryguy/renderworker/internal/node"
)

// blockingRenderer holds renders of trees whose first text is "slow" until
// release is closed.
type blockingRenderer struct {
	release chan struct{}
	loadErr error

	mu   sync.Mutex
	seen []map[string][]byte
}

func (b *blockingRenderer) Load(context.Context) error { return b.loadErr }

func (b *blockingRenderer) Render(ctx context.Context, root *node.Node, opts RenderOptions, resources map[string][]byte) ([]byte, error) {
	b.mu.Lock()
	b.seen = append(b.seen, resources)
	b.mu.Unlock()
	if root.Type == node.KindText && root.Text == "slow" {
		select {
		case <-b.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte(root.Text), nil
}

func program(text string) string {
	return `export const options = { width: 8, height: 8, format: "png" };
export default () => <span>` + text + `</span>;`
}

func testOptions(r Renderer) Options {
	cfg := DefaultConfig()
	cfg.PoolSize = 1
	cfg.ResourceCacheSize = 0
	return Options{Config: cfg, Renderer: r}
}

func waitAccepted(t *testing.T, c *Client) RenderResult {
	t.Helper()
	select {
	case r, ok := <-c.Accepted():
		if !ok {
			t.Fatal("accepted channel closed")
		}
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for result")
		return RenderResult{}
	}
}

func mustRender(t *testing.T, c *Client, code string) int64 {
	t.Helper()
	id, err := c.Render(context.Background(), code)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return id
}

func TestClient_DropsStaleResults(t *testing.T) {
	r := &blockingRenderer{release: make(chan struct{})}
	c := NewClient(context.Background(), testOptions(r))
	defer c.Close()

	slow := mustRender(t, c, program("slow"))
	fast := mustRender(t, c, program("fast"))
	if fast <= slow {
		t.Fatalf("ids not increasing: slow=%d fast=%d", slow, fast)
	}

	got := waitAccepted(t, c)
	if got.ID != fast {
		t.Errorf("accepted id = %d, want %d", got.ID, fast)
	}
	if !got.OK() {
		t.Errorf("result not ok: %s", got.Message)
	}

	close(r.release)
	third := mustRender(t, c, program("third"))
	if got = waitAccepted(t, c); got.ID != third {
		t.Errorf("accepted id = %d, want %d; the slow result must never be delivered", got.ID, third)
	}

	latest, ok := c.Latest()
	if !ok || latest.ID != third {
		t.Errorf("Latest() = %d, %v; want %d", latest.ID, ok, third)
	}
}

func TestClient_Ready(t *testing.T) {
	c := NewClient(context.Background(), testOptions(&blockingRenderer{}))
	defer c.Close()

	select {
	case <-c.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("session never became ready")
	}
	if st := c.Session().State(); st != StateReady {
		t.Errorf("state = %v, want %v", st, StateReady)
	}
}

func TestClient_PersistentImages(t *testing.T) {
	r := &blockingRenderer{}
	c := NewClient(context.Background(), testOptions(r))
	defer c.Close()

	ctx := context.Background()
	if err := c.PutPersistentImage(ctx, "logo.png", []byte("logo")); err != nil {
		t.Fatalf("PutPersistentImage: %v", err)
	}
	code := `export const options = { width: 8, height: 8, format: "png" };
export default () => <img src="logo.png" />;`
	mustRender(t, c, code)
	if got := waitAccepted(t, c); !got.OK() {
		t.Fatalf("render failed: %s", got.Message)
	}

	if err := c.ClearImageStore(ctx); err != nil {
		t.Fatalf("ClearImageStore: %v", err)
	}
	mustRender(t, c, code)
	if got := waitAccepted(t, c); !got.OK() {
		t.Fatalf("render failed: %s", got.Message)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) != 2 {
		t.Fatalf("renderer called %d times, want 2", len(r.seen))
	}
	if string(r.seen[0]["logo.png"]) != "logo" {
		t.Errorf("first render resources = %v, want the persistent logo", r.seen[0])
	}
	if _, ok := r.seen[1]["logo.png"]; ok {
		t.Error("cleared image still passed to the renderer")
	}
}

func TestClient_ReportsInitFailure(t *testing.T) {
	c := NewClient(context.Background(), testOptions(&blockingRenderer{loadErr: errors.New("font missing")}))

	select {
	case <-c.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("client did not stop")
	}
	if err := c.Err(); err == nil || !strings.Contains(err.Error(), "font missing") {
		t.Errorf("Err() = %v, want font missing", err)
	}
	if _, ok := <-c.Accepted(); ok {
		t.Error("accepted channel still open")
	}
	c.Close()
}
