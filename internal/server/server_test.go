package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/cryguy/renderworker/internal/core"
	"github.com/cryguy/renderworker/internal/node"
	"github.com/cryguy/renderworker/internal/session"
)

const program = `
export const options = { width: 16, height: 16, format: "png" };
export default () => <div>hi</div>;
`

type stubRenderer struct{}

func (stubRenderer) Load(context.Context) error { return nil }

func (stubRenderer) Render(_ context.Context, root *node.Node, _ core.RenderOptions, _ map[string][]byte) ([]byte, error) {
	return []byte(root.Type), nil
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.PoolSize = 1
	cfg.ResourceCacheSize = 0
	srv := New(context.Background(), session.Options{Config: cfg, Renderer: stubRenderer{}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func postRender(t *testing.T, url, body string) (int, renderResponse) {
	t.Helper()
	resp, err := http.Post(url+"/render", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /render: %v", err)
	}
	defer resp.Body.Close()
	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func renderBody(t *testing.T, code string) string {
	t.Helper()
	b, err := json.Marshal(renderRequest{Code: code})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["engine"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestRender_OK(t *testing.T) {
	_, ts := newTestServer(t)
	status, out := postRender(t, ts.URL, renderBody(t, program))
	if status != http.StatusOK || out.Result == nil {
		t.Fatalf("status = %d, error %q", status, out.Error)
	}
	if out.Result.Status != core.StatusOK || !strings.HasPrefix(out.Result.ArtifactURI, "data:image/png;base64,") {
		t.Errorf("result = %+v", out.Result)
	}
	if out.Result.Options == nil || out.Result.Options.Width != 16 {
		t.Errorf("options = %+v", out.Result.Options)
	}
}

func TestRender_ConcurrentRequestsGetTheirOwnResults(t *testing.T) {
	_, ts := newTestServer(t)
	type reply struct {
		status int
		out    renderResponse
		err    error
	}
	body := renderBody(t, program)
	replies := make(chan reply, 4)
	for i := 0; i < 4; i++ {
		go func() {
			resp, err := http.Post(ts.URL+"/render", "application/json", strings.NewReader(body))
			if err != nil {
				replies <- reply{err: err}
				return
			}
			defer resp.Body.Close()
			var out renderResponse
			err = json.NewDecoder(resp.Body).Decode(&out)
			replies <- reply{status: resp.StatusCode, out: out, err: err}
		}()
	}
	ids := map[int64]bool{}
	for i := 0; i < 4; i++ {
		r := <-replies
		if r.err != nil {
			t.Fatalf("request: %v", r.err)
		}
		if r.status != http.StatusOK || r.out.Result == nil || r.out.Result.Status != core.StatusOK {
			t.Errorf("status = %d, result %+v", r.status, r.out.Result)
		}
		ids[r.out.ID] = true
	}
	if len(ids) != 4 {
		t.Errorf("distinct ids = %d, want 4", len(ids))
	}
}

func TestRender_ErrorResult(t *testing.T) {
	_, ts := newTestServer(t)
	status, out := postRender(t, ts.URL, renderBody(t, `export const options = { width: 1, height: 1, format: 123 }; export default () => null;`))
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", status)
	}
	if out.Result == nil || out.Result.Status != core.StatusError || !strings.Contains(out.Result.Message, "schema error") {
		t.Errorf("result = %+v", out.Result)
	}
}

func TestRender_BadRequest(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		body string
		want string
	}{
		{"{not json", "invalid json body"},
		{`{"code":"  "}`, "code is required"},
	}
	for _, tt := range tests {
		status, out := postRender(t, ts.URL, tt.body)
		if status != http.StatusBadRequest || out.Error != tt.want {
			t.Errorf("POST %s = %d %q, want 400 %q", tt.body, status, out.Error, tt.want)
		}
	}
}

func TestWebSocket_Protocol(t *testing.T) {
	_, ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	send := func(msg core.Message) {
		t.Helper()
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			t.Fatalf("write %s: %v", msg.Type, err)
		}
	}
	read := func() core.Message {
		t.Helper()
		var msg core.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != core.MessageReady {
		t.Fatalf("first message = %q, want ready", msg.Type)
	}

	send(core.Message{Type: core.MessageRenderRequest, ID: 42, Code: program})
	msg := read()
	if msg.Type != core.MessageRenderResult || msg.ID != 42 || msg.Result == nil || msg.Result.Status != core.StatusOK {
		t.Errorf("result message = %+v", msg)
	}

	// A persistent image is served without touching the network.
	send(core.Message{Type: core.MessagePutImage, Src: "https://assets.invalid/logo.png", Data: []byte("logo")})
	send(core.Message{Type: core.MessageRenderRequest, ID: 43, Code: `
export const options = { width: 16, height: 16, format: "png" };
export default () => <img src="https://assets.invalid/logo.png" />;
`})
	msg = read()
	if msg.ID != 43 || msg.Result == nil || msg.Result.Status != core.StatusOK {
		t.Errorf("persistent image render = %+v", msg.Result)
	}

	send(core.Message{Type: "bogus"})
	if msg := read(); msg.Type != core.MessageError {
		t.Errorf("unknown type reply = %q, want error", msg.Type)
	}

	if err := conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Errorf("close: %v", err)
	}
}
