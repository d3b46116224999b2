package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NodePath81/sirius/internal/config"
)

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Test"); got != "yes" {
			t.Errorf("X-Test header = %q, want \"yes\"", got)
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(Options{})
	spec := config.RequestSpec{Method: "GET", URL: srv.URL}
	spec.Headers.Set("X-Test", "yes")

	res, err := c.Do(context.Background(), spec)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if res.Bytes != 5 {
		t.Errorf("bytes = %d, want 5", res.Bytes)
	}
}

func TestDoDoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Options{})
	res, err := c.Do(context.Background(), config.RequestSpec{Method: "GET", URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Status != http.StatusFound {
		t.Errorf("status = %d, want 302 (redirect must be observed, not followed)", res.Status)
	}
}

func TestDoPostBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 16)
		n, _ := r.Body.Read(buf)
		if string(buf[:n]) != `{"a":1}` {
			t.Errorf("body = %q", buf[:n])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(Options{})
	spec := config.RequestSpec{Method: "POST", URL: srv.URL, Body: []byte(`{"a":1}`)}
	res, err := c.Do(context.Background(), spec)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Errorf("status = %d, want 201", res.Status)
	}
}

func TestDoTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, config.RequestSpec{Method: "GET", URL: srv.URL})
	if err == nil {
		t.Fatal("Do: want timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = false, want true", err)
	}
}

func TestDoConnectionRefused(t *testing.T) {
	c := New(Options{})
	_, err := c.Do(context.Background(), config.RequestSpec{Method: "GET", URL: "http://127.0.0.1:1"})
	if err == nil {
		t.Fatal("Do: want connection error")
	}
	if IsTimeout(err) {
		t.Errorf("IsTimeout(%v) = true, want false for connection refused", err)
	}
}

func TestIsTimeoutNil(t *testing.T) {
	if IsTimeout(nil) {
		t.Error("IsTimeout(nil) = true")
	}
	if IsTimeout(errors.New("boom")) {
		t.Error("IsTimeout(plain error) = true")
	}
}
