package push

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestPusher(srv *httptest.Server, key string) *Pusher {
	p := New(Options{Server: srv.URL + "/", Key: key, MaxAttempts: 3})
	p.sleep = noSleep
	return p
}

// --- Tests ---

func TestPush_DeliversMultipart(t *testing.T) {
	var gotKey, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != uploadPath || r.Method != http.MethodPost {
			t.Errorf("request: got %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"message":"Data uploaded successfully","dataset_id":"abc","resources_count":2,"trials_count":1}`)
	}))
	defer srv.Close()

	res, err := newTestPusher(srv, "s3cret").Push(context.Background(), "/tmp/data/q2.json", []byte(`{"resources":[]}`))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res.DatasetID != "abc" || res.ResourcesCount != 2 || res.TrialsCount != 1 {
		t.Errorf("result: got %+v", res)
	}
	if gotKey != "s3cret" {
		t.Errorf("api key: got %q", gotKey)
	}
	if gotName != "q2.json" {
		t.Errorf("filename: got %q, want q2.json", gotName)
	}
	if gotBody != `{"resources":[]}` {
		t.Errorf("body: got %q", gotBody)
	}
}

func TestPush_RetriesTransient(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"dataset_id":"ok"}`)
	}))
	defer srv.Close()

	res, err := newTestPusher(srv, "").Push(context.Background(), "d.json", []byte("{}"))
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if res.DatasetID != "ok" {
		t.Errorf("dataset_id: got %q", res.DatasetID)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestPush_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestPusher(srv, "").Push(context.Background(), "d.json", []byte("{}")); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls: got %d, want 3", n)
	}
}

func TestPush_ValidationRejectionIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"valid":false,"errors":["Missing 'trials' field"]}`)
	}))
	defer srv.Close()

	_, err := newTestPusher(srv, "").Push(context.Background(), "d.json", []byte("{}"))
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err: got %v, want *RejectedError", err)
	}
	if rej.StatusCode != http.StatusBadRequest || len(rej.Errors) != 1 || rej.Errors[0] != "Missing 'trials' field" {
		t.Errorf("rejection: got %+v", rej)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
}

func TestPush_UnauthorizedIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid api key"}`)
	}))
	defer srv.Close()

	_, err := newTestPusher(srv, "wrong").Push(context.Background(), "d.json", []byte("{}"))
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Message != "invalid api key" {
		t.Fatalf("err: got %v", err)
	}
}

func TestPush_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Options{Server: srv.URL, MaxAttempts: 5})
	p.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	if _, err := p.Push(context.Background(), "d.json", []byte("{}")); !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := newBackoff()
	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		d := b.next()
		if d > time.Duration(float64(backoffMax)*1.25) {
			t.Fatalf("step %d: %v exceeds cap", i, d)
		}
		if i < 4 && d < prev/2 {
			t.Errorf("step %d: %v did not grow from %v", i, d, prev)
		}
		prev = d
	}
	if b.current != backoffMax {
		t.Errorf("current: got %v, want %v", b.current, backoffMax)
	}
}
