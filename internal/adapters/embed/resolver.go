package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/metrics"
)

var (
	ogVideoRe   = regexp.MustCompile(`(?i)<meta\s+(?:property|name)=["']og:video(?::url|:secure_url)?["']\s+content=["']([^"']+)["']`)
	twStreamRe  = regexp.MustCompile(`(?i)<meta\s+(?:property|name)=["']twitter:player:stream["']\s+content=["']([^"']+)["']`)
	videoTagRe  = regexp.MustCompile(`(?i)<video[^>]*src=["']([^"']+)["']`)
	sourceMP4Re = regexp.MustCompile(`(?i)<source[^>]*type=["']video/mp4["'][^>]*src=["']([^"']+)["']`)
	jsonMP4Re   = regexp.MustCompile(`(?i)"(?:url|src)"\s*:\s*"([^"]+\.mp4[^"]*)"`)
	sourceHLSRe = regexp.MustCompile(`(?i)<source[^>]*type=["']application/x-mpegURL["'][^>]*src=["']([^"']+)["']`)
	jsonHLSRe   = regexp.MustCompile(`(?i)"(?:url|src)"\s*:\s*"([^"]+\.m3u8[^"]*)"`)
)

// Resolver добирает источники видео с embed-страниц постов.
// Запросы ограничены по числу за один проход и по времени каждый;
// отрицательные результаты кэшируются, чтобы опрос ленты не
// дёргал одну и ту же embed-страницу повторно.
type Resolver struct {
	fetcher       domain.PageFetcher
	cache         domain.Cache
	cacheTTL      time.Duration
	maxPerRequest int
	log           zerolog.Logger
}

// NewResolver создаёт резолвер.
func NewResolver(fetcher domain.PageFetcher, cache domain.Cache, cacheTTL time.Duration, maxPerRequest int, log zerolog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, cache: cache, cacheTTL: cacheTTL, maxPerRequest: maxPerRequest, log: log}
}

// ResolveMissing дополняет видео-посты без источника, правя срез на месте.
// Попытки идут параллельно и изолированы: таймаут одной не роняет другие.
func (r *Resolver) ResolveMissing(ctx context.Context, channel string, posts []domain.Post) {
	var picked []int
	for i := range posts {
		if posts[i].MediaKind != domain.MediaVideo || posts[i].VideoURL != nil || posts[i].StreamURL != nil {
			continue
		}
		picked = append(picked, i)
		if len(picked) == r.maxPerRequest {
			break
		}
	}
	if len(picked) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, idx := range picked {
		idx := idx
		g.Go(func() error {
			result := r.resolve(ctx, channel, posts[idx].ID)
			posts[idx].VideoURL = result.VideoURL
			posts[idx].StreamURL = result.StreamURL
			return nil
		})
	}
	_ = g.Wait()
}

// resolve возвращает источники для одного поста, при промахе кэша
// загружая embed-страницу. Ошибки не всплывают: пост остаётся без видео.
func (r *Resolver) resolve(ctx context.Context, channel, postID string) domain.EmbedResult {
	key := cacheKey(channel, postID)
	if raw, err := r.cache.Get(key); err == nil {
		var cached domain.EmbedResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.EmbedResolutions.WithLabelValues("cached").Inc()
			return cached
		}
	}

	result := r.fetchAndMatch(ctx, channel, postID)

	if payload, err := json.Marshal(result); err == nil {
		_ = r.cache.Set(key, payload, r.cacheTTL)
	}
	return result
}

func (r *Resolver) fetchAndMatch(ctx context.Context, channel, postID string) domain.EmbedResult {
	html, err := r.fetcher.FetchEmbedPage(ctx, channel, postID)
	if err != nil {
		metrics.EmbedResolutions.WithLabelValues("fetch_error").Inc()
		r.log.Debug().Err(err).Str("channel", channel).Str("post", postID).Msg("embed: страница не загружена")
		return domain.EmbedResult{}
	}

	var result domain.EmbedResult
	for _, pattern := range []*regexp.Regexp{ogVideoRe, twStreamRe, videoTagRe, sourceMP4Re, jsonMP4Re} {
		if m := pattern.FindSubmatch(html); m != nil {
			mp4 := withScheme(string(m[1]))
			result.VideoURL = &mp4
			break
		}
	}
	for _, pattern := range []*regexp.Regexp{sourceHLSRe, jsonHLSRe} {
		if m := pattern.FindSubmatch(html); m != nil {
			hls := withScheme(string(m[1]))
			result.StreamURL = &hls
			break
		}
	}

	if result.Resolved() {
		metrics.EmbedResolutions.WithLabelValues("resolved").Inc()
	} else {
		metrics.EmbedResolutions.WithLabelValues("no_match").Inc()
	}
	return result
}

func cacheKey(channel, postID string) string {
	return fmt.Sprintf("embed:%s:%s", channel, postID)
}

func withScheme(rawURL string) string {
	if len(rawURL) >= 2 && rawURL[:2] == "//" {
		return "https:" + rawURL
	}
	return rawURL
}

var _ domain.EmbedResolver = (*Resolver)(nil)
