package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerServesRoot(t *testing.T) {
	handler := Handler("")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /: got status %d, want 200", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("GET /: empty response body")
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET /: response doesn't contain HTML doctype")
	}
	if !strings.Contains(w.Body.String(), `id="device_name"`) {
		t.Error("GET /: page has no device name field")
	}
}

func TestHandlerServesStaticAsset(t *testing.T) {
	handler := Handler("")

	for _, asset := range []string{"/static/app.js", "/static/style.css"} {
		req := httptest.NewRequest(http.MethodGet, asset, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: got status %d, want 200", asset, w.Code)
		}
		if w.Body.Len() == 0 {
			t.Errorf("GET %s: empty response body", asset)
		}
		if strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
			t.Errorf("GET %s: served index.html instead of the asset", asset)
		}
	}
}

func TestIndexPostsToSubmitEndpoint(t *testing.T) {
	handler := Handler("")

	req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "/api/v1/submit") {
		t.Error("app.js does not post to /api/v1/submit")
	}
	if !strings.Contains(body, "dashboard.frame") {
		t.Error("app.js does not handle dashboard.frame events")
	}
}

func TestHandlerNoCache(t *testing.T) {
	handler := Handler("")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestHandlerUnknownPathServesPage(t *testing.T) {
	handler := Handler("")

	for _, target := range []string{"/device/kitchen-pi", "/nonexistent", "/static/missing.js"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d, want 200", target, w.Code)
		}
		if !strings.Contains(w.Body.String(), `id="device_name"`) {
			t.Errorf("GET %s: did not serve the reporter page", target)
		}
	}
}

func TestHandlerFilesystemMode(t *testing.T) {
	dir := t.TempDir()
	indexContent := `<!DOCTYPE html><html><body>filesystem panel</body></html>`
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexContent), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "test.js"), []byte("console.log('test')"), 0644); err != nil {
		t.Fatal(err)
	}

	handler := Handler(dir)

	// Root should serve filesystem index.html
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("filesystem GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "filesystem panel") {
		t.Errorf("filesystem GET /: expected filesystem content, got %q", w.Body.String())
	}

	// Static asset should be served from filesystem
	req = httptest.NewRequest(http.MethodGet, "/test.js", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("filesystem GET /test.js: got status %d, want 200", w.Code)
	}

	// Unknown paths get the page from disk too.
	req = httptest.NewRequest(http.MethodGet, "/deep/route", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("unknown path on disk: status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "filesystem panel") {
		t.Error("unknown path on disk did not serve the index from dir")
	}
}

func TestHandlerInvalidDirFallsBackToEmbed(t *testing.T) {
	handler := Handler("/nonexistent/dir/that/does/not/exist")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("invalid dir GET /: got status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("invalid dir: didn't fall back to embedded index.html")
	}
}
