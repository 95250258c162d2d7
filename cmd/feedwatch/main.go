package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/config"
	applog "tg-preview-feed/internal/infra/log"
	syncengine "tg-preview-feed/internal/usecase/sync"
)

// httpFeedClient тянет страницы ленты с работающего API.
type httpFeedClient struct {
	baseURL string
	channel string
	limit   int
	client  *http.Client
}

// FetchPage запрашивает страницу ленты через HTTP.
func (c *httpFeedClient) FetchPage(ctx context.Context, before string) (domain.FeedPage, error) {
	query := url.Values{}
	query.Set("channel", c.channel)
	query.Set("limit", fmt.Sprintf("%d", c.limit))
	if before != "" {
		query.Set("before", before)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/channel-feed?"+query.Encode(), nil)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("создание запроса: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("запрос ленты: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.FeedPage{}, fmt.Errorf("лента вернула %d: %s", resp.StatusCode, body)
	}

	var page domain.FeedPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return domain.FeedPage{}, fmt.Errorf("разбор ответа: %w", err)
	}
	return page, nil
}

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	channel := cfg.Upstream.DefaultChannel
	if channel == "" {
		log.Fatal().Msg("feedwatch: задайте DEFAULT_CHANNEL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &httpFeedClient{
		baseURL: cfg.Sync.APIBaseURL,
		channel: channel,
		limit:   cfg.Feed.DefaultLimit,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	events := syncengine.Events{
		OnRefresh: func(state syncengine.State) {
			logger.Info().Int("posts", len(state.Posts)).Msg("feedwatch: лента обновлена")
			for i, post := range state.Posts {
				if i == 3 {
					break
				}
				logger.Info().Str("id", post.ID).Time("at", post.PublishedAt).Str("text", head(post.Text, 80)).Msg("feedwatch: пост")
			}
		},
		OnPendingNew: func(count int) {
			logger.Info().Int("pending", count).Msg("feedwatch: есть новые посты")
		},
		OnEditsMerged: func(state syncengine.State) {
			logger.Info().Msg("feedwatch: правки влиты")
		},
		OnUpdateAvailable: func() {
			logger.Info().Msg("feedwatch: доступно обновление")
		},
		OnAppended: func(state syncengine.State) {
			logger.Info().Int("posts", len(state.Posts)).Msg("feedwatch: страница дозагружена")
		},
		OnInitialError: func(err error) {
			logger.Error().Err(err).Msg("feedwatch: лента недоступна")
		},
	}

	engine := syncengine.NewEngine(client, cfg.Sync.PollInterval, events, logger)
	logger.Info().Str("channel", channel).Str("api", cfg.Sync.APIBaseURL).Msg("feedwatch: старт")
	engine.Run(ctx)
	logger.Info().Msg("feedwatch: остановка")
}

func head(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
