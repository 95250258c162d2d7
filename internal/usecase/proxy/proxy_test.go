package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
)

func TestHostAllowed(t *testing.T) {
	handler := NewHandler([]string{"telesco.pe", "telegram-cdn.org"}, zerolog.Nop())

	allowed := []string{
		"https://telesco.pe/x.jpg",
		"https://cdn.telesco.pe/x.jpg",
		"https://cdn4.telegram-cdn.org/file/abc.jpg",
		"HTTPS://CDN.TELESCO.PE/x.jpg",
	}
	for _, rawURL := range allowed {
		if !handler.HostAllowed(rawURL) {
			t.Fatalf("ожидали, что %q пройдёт по списку", rawURL)
		}
	}

	blocked := []string{
		"https://evil.example.com/x.jpg?u=telesco.pe",
		"https://eviltelesco.pe/x.jpg",
		"https://telesco.pe.evil.com/x.jpg",
		"not a url",
		"",
	}
	for _, rawURL := range blocked {
		if handler.HostAllowed(rawURL) {
			t.Fatalf("ожидали, что %q будет отклонён", rawURL)
		}
	}
}

func TestProxyMissingParam(t *testing.T) {
	handler := NewHandler([]string{"telesco.pe"}, zerolog.Nop())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/image-proxy", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("без параметра u ожидали 400, получили %d", rec.Code)
	}
}

func TestProxyDisallowedHost(t *testing.T) {
	handler := NewHandler([]string{"telesco.pe"}, zerolog.Nop())
	rec := httptest.NewRecorder()
	target := "/api/v1/image-proxy?u=" + url.QueryEscape("https://evil.example.com/x.jpg?u=telesco.pe")
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("чужой хост должен давать 403, получили %d", rec.Code)
	}
}

func TestProxyStreamsUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	host, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	handler := NewHandler([]string{host.Hostname()}, zerolog.Nop())
	rec := httptest.NewRecorder()
	target := "/api/v1/image-proxy?u=" + url.QueryEscape(upstream.URL+"/x.png")
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("тип содержимого должен пробрасываться, получили %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=86400, s-maxage=86400" {
		t.Fatalf("неожиданный Cache-Control: %q", cc)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "png-bytes" {
		t.Fatalf("байты должны передаваться без изменений, получили %q", body)
	}
}

func TestProxyUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	host, _ := url.Parse(upstream.URL)
	handler := NewHandler([]string{host.Hostname()}, zerolog.Nop())
	rec := httptest.NewRecorder()
	target := "/api/v1/image-proxy?u=" + url.QueryEscape(upstream.URL+"/x.png")
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("ошибка источника должна давать 502, получили %d", rec.Code)
	}
}
