package hosting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrlabs/appforge/internal/apperr"
)

func TestPublishSuccess(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publish" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"url": "https://apps.example.com/abc"})
	}))
	defer srv.Close()

	p := NewHTTPPublisher(srv.URL, "host-key", time.Second)
	url, err := p.Publish(context.Background(), "my-app", "<!doctype html>")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if url != "https://apps.example.com/abc" {
		t.Errorf("unexpected url: %q", url)
	}
	if gotBody["name"] != "my-app" || gotBody["content"] != "<!doctype html>" {
		t.Errorf("unexpected payload: %v", gotBody)
	}
	if gotAuth != "Bearer host-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
}

func TestPublishUnconfigured(t *testing.T) {
	p := NewHTTPPublisher("", "", time.Second)
	if _, err := p.Publish(context.Background(), "n", "c"); !apperr.IsCode(err, apperr.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPublishFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    apperr.Code
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) },
			apperr.CodeTransport,
		},
		{
			"unparsable body",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("not json")) },
			apperr.CodeMalformedResponse,
		},
		{
			"missing url",
			func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{}")) },
			apperr.CodeMalformedResponse,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			p := NewHTTPPublisher(srv.URL, "", time.Second)
			if _, err := p.Publish(context.Background(), "n", "c"); !apperr.IsCode(err, tc.want) {
				t.Errorf("expected %s error, got %v", tc.want, err)
			}
		})
	}
}
