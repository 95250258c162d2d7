package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/metrics"
)

// Service собирает страницу ленты: кэш, загрузка, разбор, видео, курсор.
type Service struct {
	fetcher      domain.PageFetcher
	parser       domain.ChannelParser
	resolver     domain.EmbedResolver
	pageCache    domain.Cache
	pageCacheTTL time.Duration
	defaultLimit int
	log          zerolog.Logger
}

// NewService создаёт сервис ленты.
func NewService(fetcher domain.PageFetcher, parser domain.ChannelParser, resolver domain.EmbedResolver, pageCache domain.Cache, pageCacheTTL time.Duration, defaultLimit int, log zerolog.Logger) *Service {
	return &Service{
		fetcher:      fetcher,
		parser:       parser,
		resolver:     resolver,
		pageCache:    pageCache,
		pageCacheTTL: pageCacheTTL,
		defaultLimit: defaultLimit,
		log:          log,
	}
}

// GetPage возвращает страницу ленты канала. Повторный запрос той же
// страницы в пределах TTL отдаётся из кэша с пометкой cached;
// одновременные промахи по одному ключу сливаются в одну загрузку.
func (s *Service) GetPage(ctx context.Context, query domain.FeedQuery) (domain.FeedPage, error) {
	if query.Channel == "" {
		return domain.FeedPage{}, domain.ErrChannelRequired
	}
	if query.Limit <= 0 {
		query.Limit = s.defaultLimit
	}

	pageLabel := "first"
	if query.Before != "" {
		pageLabel = "more"
	}
	metrics.FeedRequestsTotal.WithLabelValues(query.Channel, pageLabel).Inc()

	key := cachePageKey(query)
	if cached, ok := s.fromCache(key); ok {
		metrics.FeedCacheHits.Inc()
		s.log.Debug().Str("key", key).Int("posts", len(cached.Posts)).Msg("feed: страница из кэша")
		return cached, nil
	}
	metrics.FeedCacheMisses.Inc()

	var page domain.FeedPage
	built := false
	err := s.pageCache.Once(key+":fetch", s.pageCacheTTL, func() error {
		fresh, err := s.buildAndStore(ctx, query, key)
		if err != nil {
			return err
		}
		page = fresh
		built = true
		return nil
	})
	if err != nil {
		return domain.FeedPage{}, err
	}
	if built {
		return page, nil
	}

	// Вызов слился с параллельной загрузкой той же страницы:
	// победитель уже положил её в кэш.
	if cached, ok := s.fromCache(key); ok {
		return cached, nil
	}

	// Бэкенд без ожидания (Redis на нескольких репликах) мог отдать
	// управление до завершения победителя — строим сами.
	return s.buildAndStore(ctx, query, key)
}

// fromCache читает готовую страницу из кэша.
func (s *Service) fromCache(key string) (domain.FeedPage, bool) {
	raw, err := s.pageCache.Get(key)
	if err != nil {
		return domain.FeedPage{}, false
	}
	var cached domain.FeedPage
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.FeedPage{}, false
	}
	cached.Cached = true
	return cached, true
}

// buildAndStore выполняет конвейер и кэширует успешный результат.
func (s *Service) buildAndStore(ctx context.Context, query domain.FeedQuery, key string) (domain.FeedPage, error) {
	start := time.Now()
	page, err := s.buildPage(ctx, query)
	if err != nil {
		return domain.FeedPage{}, err
	}
	metrics.FeedBuildSeconds.Observe(time.Since(start).Seconds())

	if payload, err := json.Marshal(page); err == nil {
		_ = s.pageCache.Set(key, payload, s.pageCacheTTL)
	}
	return page, nil
}

// buildPage выполняет полный конвейер для одной страницы.
func (s *Service) buildPage(ctx context.Context, query domain.FeedQuery) (domain.FeedPage, error) {
	html, err := s.fetcher.FetchPreviewPage(ctx, query.Channel, query.Before)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("загрузка страницы канала: %w", err)
	}

	parsed := s.parser.ParseChannelPage(html, query.Channel)

	s.resolver.ResolveMissing(ctx, query.Channel, parsed.Posts)

	posts := parsed.Posts
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	if len(posts) > query.Limit {
		posts = posts[:query.Limit]
	}

	page := domain.FeedPage{
		Posts:      posts,
		NextBefore: NextCursor(posts),
		HasMore:    HasMore(posts),
	}
	if query.Before == "" {
		info := parsed.ChannelInfo
		page.ChannelInfo = &info
	}
	if page.Posts == nil {
		page.Posts = []domain.Post{}
	}

	s.log.Info().
		Str("channel", query.Channel).
		Str("before", query.Before).
		Int("posts", len(page.Posts)).
		Bool("has_more", page.HasMore).
		Msg("feed: страница собрана")
	return page, nil
}

func cachePageKey(query domain.FeedQuery) string {
	before := query.Before
	if before == "" {
		before = "first"
	}
	return fmt.Sprintf("%s:page:%s:%d", query.Channel, before, query.Limit)
}

var _ domain.FeedProvider = (*Service)(nil)
