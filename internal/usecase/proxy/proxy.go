package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tg-preview-feed/internal/infra/metrics"
)

const userAgent = "Mozilla/5.0 (compatible; TelegramImageProxy/1.0)"

// Handler проксирует байты изображений с CDN Telegram.
// Список разрешённых хостов фиксирован: точное совпадение имени
// или его поддомен.
type Handler struct {
	allowedHosts []string
	httpClient   *http.Client
	log          zerolog.Logger
}

// NewHandler создаёт прокси с заданным списком хостов.
func NewHandler(allowedHosts []string, log zerolog.Logger) *Handler {
	hosts := make([]string, 0, len(allowedHosts))
	for _, host := range allowedHosts {
		hosts = append(hosts, strings.ToLower(strings.TrimSpace(host)))
	}
	return &Handler{
		allowedHosts: hosts,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          log,
	}
}

// HostAllowed проверяет адрес по списку разрешённых хостов.
func (h *Handler) HostAllowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return false
	}
	for _, allowed := range h.allowedHosts {
		if hostname == allowed || strings.HasSuffix(hostname, "."+allowed) {
			return true
		}
	}
	return false
}

// ServeHTTP отдаёт байты изображения с долгим Cache-Control.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("u")
	if imageURL == "" {
		h.writeError(w, http.StatusBadRequest, `отсутствует параметр "u"`)
		return
	}

	if !h.HostAllowed(imageURL) {
		h.log.Error().Str("url", imageURL).Msg("proxy: хост вне списка разрешённых")
		h.writeError(w, http.StatusForbidden, "хост не разрешён")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "некорректный адрес изображения")
		return
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	metrics.ObserveNetworkRequest("proxy", "image", "cdn", start, err)
	if err != nil {
		h.log.Error().Err(err).Str("url", imageURL).Msg("proxy: изображение не загружено")
		h.writeError(w, http.StatusBadGateway, "изображение не загружено")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.log.Error().Int("status", resp.StatusCode).Str("url", imageURL).Msg("proxy: ошибка источника")
		h.writeError(w, http.StatusBadGateway, fmt.Sprintf("источник вернул %d", resp.StatusCode))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400, s-maxage=86400")
	w.Header().Set("Access-Control-Max-Age", "86400")
	metrics.ProxyRequestsTotal.WithLabelValues("ok").Inc()
	_, _ = io.Copy(w, resp.Body)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	metrics.ProxyRequestsTotal.WithLabelValues(fmt.Sprintf("%d", status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
