package tme

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/metrics"
)

const (
	userAgent   = "Mozilla/5.0 (compatible; TgPreviewFeed/1.0)"
	maxBodySize = 4 << 20
)

// Client загружает страницы предпросмотра и embed-страницы t.me.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	embedTimeout time.Duration
	log          zerolog.Logger
}

// NewClient создаёт клиент t.me.
func NewClient(baseURL string, embedTimeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("слишком много редиректов")
				}
				return nil
			},
		},
		embedTimeout: embedTimeout,
		log:          log,
	}
}

// FetchPreviewPage загружает страницу t.me/s/<канал> с курсором before.
// Параметр _ отсекает промежуточные HTTP-кэши.
func (c *Client) FetchPreviewPage(ctx context.Context, channel, before string) ([]byte, error) {
	pageURL := fmt.Sprintf("%s/s/%s?_=%s", c.baseURL, channel, strconv.FormatInt(time.Now().UnixMilli(), 10))
	if before != "" {
		pageURL = fmt.Sprintf("%s/s/%s?before=%s&_=%s", c.baseURL, channel, before, strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
	start := time.Now()
	body, err := c.get(ctx, pageURL)
	metrics.ObserveNetworkRequest("tme", "preview_page", channel, start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return body, nil
}

// FetchEmbedPage загружает embed-страницу одного поста.
// Запрос ограничен коротким таймаутом, чтобы не тянуть ответ ленты.
func (c *Client) FetchEmbedPage(ctx context.Context, channel, postID string) ([]byte, error) {
	embedURL := fmt.Sprintf("%s/%s/%s?single=1&embed=1", c.baseURL, channel, postID)
	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()
	start := time.Now()
	body, err := c.get(ctx, embedURL)
	metrics.ObserveNetworkRequest("tme", "embed_page", channel, start, err)
	return body, err
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос страницы: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("неожиданный статус: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("чтение ответа: %w", err)
	}
	return body, nil
}

var _ domain.PageFetcher = (*Client)(nil)
