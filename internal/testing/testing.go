// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Reply is a canned plugin response.
type Reply struct {
	Status int
	Body   string
}

// FakePlugin emulates the music plugin router (QR code, credential status/refresh/info).
//
// Status replies are consumed in order; the last one repeats once the queue is drained.
type FakePlugin struct {
	Prefix string

	mu      sync.Mutex
	qr      Reply
	status  []Reply
	refresh Reply
	info    Reply
	calls   map[string]int
	hook    func(path string)
}

// NewFakePlugin returns a plugin that serves a QR code and reports an invalid credential.
func NewFakePlugin() *FakePlugin {
	return &FakePlugin{
		Prefix:  "/plugins/GeQian.order_qqmusic",
		qr:      Reply{Status: http.StatusOK, Body: `"iVBORw0KGgo="`},
		status:  []Reply{{Status: http.StatusOK, Body: `{"valid":false}`}},
		refresh: Reply{Status: http.StatusOK, Body: `{"success":true,"message":"凭证刷新成功"}`},
		info:    Reply{Status: http.StatusNotFound, Body: `{"detail":"未找到凭证文件"}`},
		calls:   make(map[string]int),
	}
}

func (f *FakePlugin) SetQR(r Reply) { f.mu.Lock(); f.qr = r; f.mu.Unlock() }
func (f *FakePlugin) SetRefresh(r Reply) { f.mu.Lock(); f.refresh = r; f.mu.Unlock() }
func (f *FakePlugin) SetInfo(r Reply) { f.mu.Lock(); f.info = r; f.mu.Unlock() }
func (f *FakePlugin) SetStatus(r ...Reply) { f.mu.Lock(); f.status = r; f.mu.Unlock() }

// OnRequest registers a hook invoked (outside the lock) before each request is answered.
func (f *FakePlugin) OnRequest(fn func(path string)) { f.mu.Lock(); f.hook = fn; f.mu.Unlock() }

// Calls returns how many times path (without prefix) was requested.
func (f *FakePlugin) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Start serves the plugin on an [httptest.Server] closed at test cleanup and returns the base URL including prefix.
func (f *FakePlugin) Start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv.URL + f.Prefix
}

func (f *FakePlugin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, f.Prefix)

	f.mu.Lock()
	f.calls[path]++
	hook := f.hook
	var reply Reply
	switch {
	case strings.HasPrefix(path, "/get_qrcode/") && r.Method == http.MethodGet:
		reply = f.qr
		method := strings.TrimPrefix(path, "/get_qrcode/")
		if method != "qq" && method != "wx" {
			reply = Reply{Status: http.StatusBadRequest, Body: `{"detail":"无效的登录类型，仅支持 'wx' 或 'qq'"}`}
		}
	case path == "/credential/status" && r.Method == http.MethodGet:
		reply = f.status[0]
		if len(f.status) > 1 {
			f.status = f.status[1:]
		}
	case path == "/credential/refresh" && r.Method == http.MethodPost:
		reply = f.refresh
	case path == "/credential/info" && r.Method == http.MethodGet:
		reply = f.info
	default:
		reply = Reply{Status: http.StatusNotFound, Body: `{"detail":"Not Found"}`}
	}
	f.mu.Unlock()

	if hook != nil {
		hook(path)
	}

	if strings.HasPrefix(reply.Body, "{") {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(reply.Status)
	io.WriteString(w, reply.Body)
}
