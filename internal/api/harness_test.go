package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/ashureev/socialdash/internal/identity"
	"github.com/ashureev/socialdash/internal/inbox"
	"github.com/ashureev/socialdash/internal/session"
	"github.com/ashureev/socialdash/internal/store"
	"github.com/ashureev/socialdash/internal/view"
	"github.com/ashureev/socialdash/web"
)

type backendRequest struct {
	Method        string
	Path          string
	Authorization string
	HasAuth       bool
	Body          string
}

type backendReply struct {
	status int
	body   string
}

// fakeBackend records every request and answers from a per-path table.
type fakeBackend struct {
	mu       sync.Mutex
	requests []backendRequest
	replies  map[string]backendReply
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: map[string]backendReply{
		"/api/dashboard/instagram/insights/": {http.StatusOK, `{"insights":{"account_metrics":{}}}`},
		"/api/dashboard/instagram/posts/":    {http.StatusOK, `{"posts":[]}`},
		"/api/dashboard/instagram/profile/":  {http.StatusOK, `{"profile":{"username":"acme","followers_count":1500}}`},
	}}
}

func (f *fakeBackend) reply(path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[path] = backendReply{status, body}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	_, hasAuth := r.Header["Authorization"]

	f.mu.Lock()
	f.requests = append(f.requests, backendRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get("Authorization"),
		HasAuth:       hasAuth,
		Body:          string(b),
	})
	rep, ok := f.replies[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		rep = backendReply{http.StatusNotFound, `{"detail":"Not found."}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = io.WriteString(w, rep.body)
}

func (f *fakeBackend) calls(path string) []backendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []backendRequest
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeBackend) lastCall(t *testing.T, path string) backendRequest {
	t.Helper()
	calls := f.calls(path)
	if len(calls) == 0 {
		t.Fatalf("backend never received %s", path)
	}
	return calls[len(calls)-1]
}

type testApp struct {
	server     *httptest.Server
	backend    *fakeBackend
	backendSrv *httptest.Server
	repo       *store.SQLiteStore
	client     *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := newFakeBackend()
	backendSrv := httptest.NewServer(fake)
	t.Cleanup(backendSrv.Close)

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	client, err := backend.New(backendSrv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("backend.New() error = %v", err)
	}
	fx, err := fixtures.Default()
	if err != nil {
		t.Fatalf("fixtures.Default() error = %v", err)
	}
	views, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	sessions := session.NewManager(session.NewSCS(repo, session.Options{Lifetime: time.Hour}))
	hub := inbox.NewHub()
	convos := inbox.NewConversations(fx.Threads, fx.Greeting)
	ws := inbox.NewWebSocketHandler(hub, convos, "", true)

	h := NewHandler(Deps{
		Backend:       client,
		Sessions:      sessions,
		Devices:       repo,
		Views:         views,
		Fixtures:      fx,
		Conversations: convos,
		Live:          ws,
		Hub:           hub,
	})
	router := NewRouter(RouterConfig{
		Handler:  h,
		Health:   NewHealthHandler(repo),
		Sessions: sessions,
		Devices:  repo,
		Inbox:    ws,
		Static:   web.StaticHandler(),
		IsDev:    true,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testApp{
		server:     srv,
		backend:    fake,
		backendSrv: backendSrv,
		repo:       repo,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	body     string
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values) response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.server.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := a.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(b)}
}

func (a *testApp) get(t *testing.T, path string) response {
	t.Helper()
	return a.do(t, http.MethodGet, path, nil)
}

func (a *testApp) post(t *testing.T, path string, form url.Values) response {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	return a.do(t, http.MethodPost, path, form)
}

// follow posts a form and then loads the redirect target.
func (a *testApp) follow(t *testing.T, path string, form url.Values) response {
	t.Helper()
	res := a.post(t, path, form)
	if res.status != http.StatusSeeOther {
		t.Fatalf("POST %s status = %d, want 303; body: %.300s", path, res.status, res.body)
	}
	return a.get(t, res.location)
}

func (a *testApp) backendURL(t *testing.T) string {
	t.Helper()
	return a.backendSrv.URL
}

func (a *testApp) deviceID(t *testing.T) string {
	t.Helper()
	u, _ := url.Parse(a.server.URL)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == identity.DeviceCookieName {
			return c.Value
		}
	}
	t.Fatal("no device cookie")
	return ""
}

func (a *testApp) refreshToken(t *testing.T) (string, bool) {
	t.Helper()
	v, err := a.repo.GetDeviceItem(context.Background(), a.deviceID(t), "refresh_token")
	if errors.Is(err, store.ErrNotFound) {
		return "", false
	}
	if err != nil {
		t.Fatalf("GetDeviceItem() error = %v", err)
	}
	return v, true
}

// login signs in with a backend returning access/refresh.
func (a *testApp) login(t *testing.T, access, refresh string) {
	t.Helper()
	a.backend.reply("/api/account/token/", http.StatusOK, `{"access":"`+access+`","refresh":"`+refresh+`"}`)
	res := a.post(t, "/login", url.Values{"username": {"ana"}, "password": {"pw"}})
	if res.status != http.StatusSeeOther || res.location != "/business-setup" {
		t.Fatalf("login status = %d location = %q", res.status, res.location)
	}
}
