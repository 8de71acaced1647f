package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"linked"}`))
	}))
	defer srv.Close()

	doc, err := New(WithLoopback()).Fetch(context.Background(), srv.URL+"/doc.json")
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.Body) != `{"title":"linked"}` || doc.ContentType != "application/json" {
		t.Errorf("doc = %q %q", doc.Body, doc.ContentType)
	}
}

func TestFetch_LoopbackBlockedByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "loopback") {
		t.Errorf("err = %v, want loopback block", err)
	}
}

func TestFetch_RejectsScheme(t *testing.T) {
	if _, err := New().Fetch(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("file scheme accepted")
	}
	if _, err := New().Fetch(context.Background(), "http://169.254.169.254/latest"); err == nil {
		t.Error("metadata address accepted")
	}
}

func TestFetch_StatusAndSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c := New(WithLoopback(), WithMaxBytes(16))
	if _, err := c.Fetch(context.Background(), srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("err = %v, want HTTP 404", err)
	}
	if _, err := c.Fetch(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := New(WithLoopback()).Fetch(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestFetch_DataURI(t *testing.T) {
	doc, err := New().Fetch(context.Background(), "data:application/json;base64,eyJhIjoxfQ==")
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.Body) != `{"a":1}` || doc.ContentType != "application/json" {
		t.Errorf("doc = %q %q", doc.Body, doc.ContentType)
	}
	doc, err = New().Fetch(context.Background(), "data:,hello%20world")
	if err != nil || string(doc.Body) != "hello world" {
		t.Errorf("plain data URI = %q, %v", doc.Body, err)
	}
}
