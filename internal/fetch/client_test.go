package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("station"); got != "10385" {
			t.Errorf("station query = %q, want %q", got, "10385")
		}
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := NewClient(2, 5*time.Second, testLogger())
	params := url.Values{"station": []string{"10385"}}

	body, err := client.Get(context.Background(), server.URL, params, nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("Get() body = %q, want %q", body, "payload")
	}
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("second try"))
	}))
	defer server.Close()

	client := NewClient(3, 5*time.Second, testLogger())

	body, err := client.Get(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(body) != "second try" {
		t.Errorf("Get() body = %q, want %q", body, "second try")
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestClient_GetExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(2, 5*time.Second, testLogger())

	_, err := client.Get(context.Background(), server.URL, nil, nil)
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("Get() error = %v, want ErrNoResponse", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q, want application/json", got)
		}
		w.Write([]byte(`{"name":"Berlin-Tegel","value":21.5}`))
	}))
	defer server.Close()

	client := NewClient(1, 5*time.Second, testLogger())

	var payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	if err := client.GetJSON(context.Background(), server.URL, nil, nil, &payload); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if payload.Name != "Berlin-Tegel" || payload.Value != 21.5 {
		t.Errorf("GetJSON() decoded %+v", payload)
	}
}

func TestClient_GetJSON_Undecodable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(1, 5*time.Second, testLogger())

	var payload map[string]any
	if err := client.GetJSON(context.Background(), server.URL, nil, nil, &payload); err == nil {
		t.Fatal("GetJSON() expected an error for a non-JSON body")
	}
}

func TestClient_GetDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="showcase"><p>hello</p></div></body></html>`))
	}))
	defer server.Close()

	client := NewClient(1, 5*time.Second, testLogger())

	doc, err := client.GetDocument(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("GetDocument() error: %v", err)
	}
	if got := doc.Find("div#showcase p").Text(); got != "hello" {
		t.Errorf("document text = %q, want %q", got, "hello")
	}
}

func TestClient_GetHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(3, 5*time.Second, testLogger())
	if _, err := client.Get(ctx, server.URL, nil, nil); err == nil {
		t.Fatal("Get() expected an error with a canceled context")
	}
}
