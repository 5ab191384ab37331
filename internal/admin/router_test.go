package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/internal/admin"
	"github.com/fix44engine/fix44/internal/auth"
	"github.com/fix44engine/fix44/session"
)

type fakeSender struct {
	got *fix.Message
	err error
}

func (s *fakeSender) Send(msg *fix.Message) error {
	s.got = msg
	return s.err
}

type fakeStatus struct{}

func (fakeStatus) Snapshot(ctx context.Context) (session.Snapshot, error) {
	return session.Snapshot{State: session.LoggedIn, NextSend: 4, NextExpect: 3}, nil
}

func TestLiveness(t *testing.T) {
	h := admin.NewRouter(admin.Router{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestInjectBuildsAndSendsMessage(t *testing.T) {
	sender := &fakeSender{}
	h := admin.NewRouter(admin.Router{Dict: fix.NewGroupDict(), Sender: sender})

	body := `{"type":"D","fields":[[5001,"hello"]]}`
	req := httptest.NewRequest(http.MethodPost, "/inject", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if sender.got == nil {
		t.Fatal("Sender.Send was never called")
	}
	if mt, _ := sender.got.MsgType(); mt != "D" {
		t.Errorf("MsgType = %q, want D", mt)
	}
	if f, ok := sender.got.Get(5001); !ok || f.Bytes() == nil {
		t.Error("custom tag 5001 missing from injected message")
	}
}

func TestInjectRejectsMissingType(t *testing.T) {
	h := admin.NewRouter(admin.Router{Dict: fix.NewGroupDict(), Sender: &fakeSender{}})
	req := httptest.NewRequest(http.MethodPost, "/inject", strings.NewReader(`{"fields":[]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestInjectRequiresBearerTokenWhenVerifierSet(t *testing.T) {
	v, err := auth.New(auth.Credentials{Username: "u", Password: "p"}, auth.Config{Secret: "a-32-character-or-longer-secret!"})
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	h := admin.NewRouter(admin.Router{Dict: fix.NewGroupDict(), Sender: &fakeSender{}, Verifier: v})

	req := httptest.NewRequest(http.MethodPost, "/inject", strings.NewReader(`{"type":"D","fields":[]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}

	token, err := v.Ready("CONN", "u", "p")
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/inject", strings.NewReader(`{"type":"D","fields":[]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status with token = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	h := admin.NewRouter(admin.Router{Status: fakeStatus{}})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap session.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.NextSend != 4 {
		t.Errorf("NextSend = %d, want 4", snap.NextSend)
	}
}

func TestStatusUnavailableWithoutSnapshotter(t *testing.T) {
	h := admin.NewRouter(admin.Router{})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
