package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeDevices struct {
	mu      sync.Mutex
	touched []string
	err     error
}

func (f *fakeDevices) TouchDevice(_ context.Context, deviceID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, deviceID)
	return f.err
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var deviceID, tabID string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID = DeviceIDFromContext(r.Context())
		tabID = TabIDFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, deviceID, tabID
}

func TestMiddlewareIssuesDeviceCookie(t *testing.T) {
	devices := &fakeDevices{}
	w, deviceID, tabID := serve(t, Middleware(devices, true), httptest.NewRequest("GET", "/", nil))

	if !IsValidDeviceID(deviceID) {
		t.Fatalf("device id %q has wrong shape", deviceID)
	}
	if tabID != DefaultTabID {
		t.Errorf("tab id = %q, want %q", tabID, DefaultTabID)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DeviceCookieName || cookies[0].Value != deviceID {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("device cookie must be HttpOnly")
	}
	if cookies[0].Secure {
		t.Error("device cookie should not be Secure in development")
	}
	if len(devices.touched) != 1 || devices.touched[0] != deviceID {
		t.Errorf("touched = %v", devices.touched)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	existing := "dev_0123456789abcdef0123456789abcdef"
	req := httptest.NewRequest("GET", "/?tab_id=tab-7", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: existing})

	w, deviceID, tabID := serve(t, Middleware(nil, false), req)
	if deviceID != existing {
		t.Errorf("device id = %q, want %q", deviceID, existing)
	}
	if tabID != "tab-7" {
		t.Errorf("tab id = %q, want tab-7", tabID)
	}
	if c := w.Result().Cookies(); len(c) != 1 || !c[0].Secure {
		t.Errorf("expected refreshed Secure cookie, got %+v", c)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "../../etc"})
	req.Header.Set(TabHeaderName, "bad tab id with spaces")

	_, deviceID, tabID := serve(t, Middleware(nil, true), req)
	if deviceID == "../../etc" || !IsValidDeviceID(deviceID) {
		t.Errorf("forged id accepted: %q", deviceID)
	}
	if tabID != DefaultTabID {
		t.Errorf("tab id = %q, want default", tabID)
	}
}

func TestMiddlewareToleratesTouchFailure(t *testing.T) {
	devices := &fakeDevices{err: errors.New("database is locked")}
	w, deviceID, _ := serve(t, Middleware(devices, true), httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if deviceID == "" {
		t.Error("device id missing after touch failure")
	}
}
