package tme

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
)

func TestFetchPreviewPage(t *testing.T) {
	var gotPath, gotBefore string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBefore = r.URL.Query().Get("before")
		if r.URL.Query().Get("_") == "" {
			t.Errorf("ожидали параметр _ против промежуточных кэшей")
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	body, err := client.FetchPreviewPage(context.Background(), "example", "41")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Fatalf("неожиданное тело: %q", body)
	}
	if gotPath != "/s/example" {
		t.Fatalf("ожидали путь /s/example, получили %q", gotPath)
	}
	if gotBefore != "41" {
		t.Fatalf("курсор должен уходить параметром before, получили %q", gotBefore)
	}
}

func TestFetchPreviewPageUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	if _, err := client.FetchPreviewPage(context.Background(), "example", ""); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("ожидали ErrUpstreamUnavailable, получили %v", err)
	}
}

func TestFetchEmbedPageTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, 50*time.Millisecond, zerolog.Nop())
	start := time.Now()
	if _, err := client.FetchEmbedPage(context.Background(), "example", "7"); err == nil {
		t.Fatalf("ожидали ошибку таймаута")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("таймаут embed-страницы должен быть коротким")
	}
}

func TestFetchEmbedPagePath(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte("embed"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zerolog.Nop())
	if _, err := client.FetchEmbedPage(context.Background(), "example", "7"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if gotPath != "/example/7" {
		t.Fatalf("ожидали путь /example/7, получили %q", gotPath)
	}
	if gotQuery != "single=1&embed=1" {
		t.Fatalf("ожидали single=1&embed=1, получили %q", gotQuery)
	}
}
