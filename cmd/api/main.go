package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tg-preview-feed/internal/adapters/embed"
	"tg-preview-feed/internal/adapters/preview"
	"tg-preview-feed/internal/adapters/tme"
	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/cache"
	"tg-preview-feed/internal/infra/config"
	httpinfra "tg-preview-feed/internal/infra/http"
	applog "tg-preview-feed/internal/infra/log"
	"tg-preview-feed/internal/infra/metrics"
	"tg-preview-feed/internal/usecase/feed"
	"tg-preview-feed/internal/usecase/proxy"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pageCache, embedCache, err := buildCaches(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("api: кэш не создан")
	}

	fetcher := tme.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.EmbedTimeout, logger.With().Str("component", "tme").Logger())

	parserOpts := []preview.Option{}
	if cfg.Upstream.LinkNeedle != "" {
		parserOpts = append(parserOpts, preview.WithLinkNeedle(cfg.Upstream.LinkNeedle))
	}
	parser := preview.NewParser(logger.With().Str("component", "parser").Logger(), parserOpts...)

	resolver := embed.NewResolver(fetcher, embedCache, cfg.Feed.EmbedCacheTTL, cfg.Feed.EmbedPerPage,
		logger.With().Str("component", "embed").Logger())

	feedService := feed.NewService(fetcher, parser, resolver, pageCache, cfg.Feed.PageCacheTTL, cfg.Feed.DefaultLimit,
		logger.With().Str("component", "feed").Logger())

	imageProxy := proxy.NewHandler(cfg.Proxy.AllowedHosts, logger.With().Str("component", "proxy").Logger())

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	server.Router.Get("/api/v1/channel-feed", channelFeedHandler(feedService, cfg.Upstream.DefaultChannel, cfg.Feed.DefaultLimit))
	server.Router.Get("/api/v1/image-proxy", imageProxy.ServeHTTP)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      server.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("api: старт")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// buildCaches выбирает бэкенд кэшей: локальный LRU по умолчанию,
// Redis — когда реплик несколько и задан REDIS_ADDR.
func buildCaches(cfg config.AppConfig) (domain.Cache, domain.Cache, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		shared := cache.NewRedis(client)
		return shared, shared, nil
	}
	pageCache, err := cache.NewMemory(cfg.Feed.PageCacheSize)
	if err != nil {
		return nil, nil, err
	}
	embedCache, err := cache.NewMemory(cfg.Feed.PageCacheSize)
	if err != nil {
		return nil, nil, err
	}
	return pageCache, embedCache, nil
}

// channelFeedHandler обслуживает GET /api/v1/channel-feed.
func channelFeedHandler(provider domain.FeedProvider, defaultChannel string, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("channel")), "@")
		if channel == "" {
			channel = defaultChannel
		}
		if channel == "" {
			writeError(w, http.StatusBadRequest, domain.ErrChannelRequired.Error())
			return
		}

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		page, err := provider.GetPage(r.Context(), domain.FeedQuery{
			Channel: channel,
			Before:  r.URL.Query().Get("before"),
			Limit:   limit,
		})
		if err != nil {
			log.Error().Err(err).Str("channel", channel).Msg("api: страница ленты не собрана")
			writeJSONStatus(w, http.StatusInternalServerError, map[string]any{
				"error":   "не удалось получить посты канала",
				"message": err.Error(),
				"posts":   []domain.Post{},
			})
			return
		}
		writeJSON(w, page)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]any{"error": msg})
}
