package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"masraf/internal/core"
)

func TestFetchFallsBackToSecondCandidate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if _, _, ok := r.BasicAuth(); ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png; charset=binary")
		w.Write([]byte("unauthenticated-bytes"))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client())
	m, err := f.Fetch(context.Background(), srv.URL, Candidates(AuthFirst, Credential{Username: "AC1", Password: "tok"}))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(m.Data) != "unauthenticated-bytes" || m.MimeType != "image/png" {
		t.Fatalf("unexpected media: %q %q", m.Data, m.MimeType)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestFetchStopsAtFirstSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC1" || pass != "tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte("auth-bytes"))
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client())
	m, err := f.Fetch(context.Background(), srv.URL, Candidates(AuthFirst, Credential{Username: "AC1", Password: "tok"}))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(m.Data) != "auth-bytes" || calls.Load() != 1 {
		t.Fatalf("data=%q calls=%d", m.Data, calls.Load())
	}
	if m.MimeType != DefaultMimeType {
		t.Fatalf("mime=%q, want default", m.MimeType)
	}

	calls.Store(0)
	m, err = f.Fetch(context.Background(), srv.URL, Candidates(NoneFirst, Credential{Username: "AC1", Password: "tok"}))
	if err != nil || string(m.Data) != "auth-bytes" || calls.Load() != 2 {
		t.Fatalf("none-first: data=%q calls=%d err=%v", m.Data, calls.Load(), err)
	}
}

func TestFetchAllCandidatesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcherWithClient(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL, Candidates(AuthFirst, Credential{Username: "a", Password: "b"}))
	if !errors.Is(err, core.ErrMediaUnavailable) {
		t.Fatalf("expected media unavailable, got %v", err)
	}
}

func TestFetchTimeoutIsMediaUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	_, err := NewFetcherWithClient(client).Fetch(context.Background(), srv.URL, nil)
	if !errors.Is(err, core.ErrMediaUnavailable) {
		t.Fatalf("expected media unavailable, got %v", err)
	}
}

func TestCandidates(t *testing.T) {
	cred := Credential{Username: "AC1", Password: "tok"}
	if c := Candidates(AuthFirst, cred); len(c) != 2 || c[0] == nil || c[1] != nil {
		t.Fatalf("auth-first: %+v", c)
	}
	if c := Candidates(NoneFirst, cred); len(c) != 2 || c[0] != nil || c[1] == nil {
		t.Fatalf("none-first: %+v", c)
	}
	if c := Candidates(AuthFirst, Credential{Username: "AC1"}); len(c) != 1 || c[0] != nil {
		t.Fatalf("partial credential must not be tried: %+v", c)
	}
}

func TestMimeTypeHelpers(t *testing.T) {
	tests := []struct {
		in, mime, ext string
		image         bool
	}{
		{"image/jpeg", "image/jpeg", "jpg", true},
		{"IMAGE/PNG; q=1", "image/png", "png", true},
		{"", DefaultMimeType, "jpg", true},
		{"application/pdf", "application/pdf", "bin", false},
		{" audio/ogg ;codecs=opus", "audio/ogg", "bin", false},
	}
	for _, tt := range tests {
		if got := MimeType(tt.in); got != tt.mime {
			t.Errorf("MimeType(%q)=%q, want %q", tt.in, got, tt.mime)
		}
		if got := IsImage(tt.in); got != tt.image {
			t.Errorf("IsImage(%q)=%v", tt.in, got)
		}
		if got := Extension(tt.in); got != tt.ext {
			t.Errorf("Extension(%q)=%q, want %q", tt.in, got, tt.ext)
		}
	}
}
