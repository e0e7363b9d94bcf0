package appserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, staticDir string) *httptest.Server {
	t.Helper()
	local := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"local": r.URL.Path})
	})
	srv := NewServer(Deps{LocalAPIHandle: local, WebUI: WebUIConfig{StaticDir: staticDir}})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServer_RoutesLocalAPIPaths(t *testing.T) {
	ts := newTestServer(t, "")
	for _, p := range []string{"/api/tasks", "/api/task-details/1", "/events", "/ws", "/healthz"} {
		code, body := get(t, ts.URL+p)
		if code != http.StatusOK || !strings.Contains(body, `"local":"`+p+`"`) {
			t.Fatalf("path %s: expected local api, got %d %s", p, code, body)
		}
	}
}

func TestServer_NoStaticDirIs404(t *testing.T) {
	ts := newTestServer(t, "")
	code, body := get(t, ts.URL+"/")
	if code != http.StatusNotFound || !strings.Contains(body, "No front end") {
		t.Fatalf("expected 404 without static dir, got %d %s", code, body)
	}
}

func TestServer_ServesStaticFilesWithIndexFallback(t *testing.T) {
	dist := t.TempDir()
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<h1>todo</h1>"), 0o644); err != nil {
		t.Fatalf("write index failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dist, "script.js"), []byte("console.log('x')"), 0o644); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	ts := newTestServer(t, dist)

	if code, body := get(t, ts.URL+"/"); code != http.StatusOK || body != "<h1>todo</h1>" {
		t.Fatalf("unexpected root: %d %s", code, body)
	}
	if code, body := get(t, ts.URL+"/script.js"); code != http.StatusOK || !strings.Contains(body, "console.log") {
		t.Fatalf("unexpected asset: %d %s", code, body)
	}
	if code, body := get(t, ts.URL+"/task-details.html"); code != http.StatusOK || body != "<h1>todo</h1>" {
		t.Fatalf("expected index fallback, got %d %s", code, body)
	}
	if code, _ := get(t, ts.URL+"/../../etc/passwd"); code != http.StatusOK {
		t.Fatalf("expected traversal to resolve inside dist, got %d", code)
	}
}
