package embed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/cache"
)

type fakeEmbedFetcher struct {
	mu    sync.Mutex
	pages map[string][]byte
	calls map[string]int
	err   error
}

func (f *fakeEmbedFetcher) FetchPreviewPage(ctx context.Context, channel, before string) ([]byte, error) {
	return nil, errors.New("не используется")
}

func (f *fakeEmbedFetcher) FetchEmbedPage(ctx context.Context, channel, postID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[postID]++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[postID], nil
}

func (f *fakeEmbedFetcher) callCount(postID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[postID]
}

func videoPost(id string) domain.Post {
	return domain.Post{ID: id, MediaKind: domain.MediaVideo}
}

func newTestResolver(t *testing.T, fetcher *fakeEmbedFetcher, maxPerRequest int) *Resolver {
	t.Helper()
	embedCache, err := cache.NewMemory(64)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	return NewResolver(fetcher, embedCache, time.Minute, maxPerRequest, zerolog.Nop())
}

func TestResolveFromOgVideo(t *testing.T) {
	fetcher := &fakeEmbedFetcher{pages: map[string][]byte{
		"7": []byte(`<html><head><meta property="og:video" content="//cdn.telesco.pe/v7.mp4"></head></html>`),
	}}
	resolver := newTestResolver(t, fetcher, 5)

	posts := []domain.Post{videoPost("7")}
	resolver.ResolveMissing(context.Background(), "example", posts)

	if posts[0].VideoURL == nil || *posts[0].VideoURL != "https://cdn.telesco.pe/v7.mp4" {
		t.Fatalf("ожидали нормализованный mp4, получили %v", posts[0].VideoURL)
	}
}

func TestResolveHLSFallback(t *testing.T) {
	fetcher := &fakeEmbedFetcher{pages: map[string][]byte{
		"8": []byte(`<video><source type="application/x-mpegURL" src="https://cdn.telesco.pe/v8.m3u8"></video>`),
	}}
	resolver := newTestResolver(t, fetcher, 5)

	posts := []domain.Post{videoPost("8")}
	resolver.ResolveMissing(context.Background(), "example", posts)

	if posts[0].VideoURL != nil {
		t.Fatalf("mp4 не ожидали, получили %v", posts[0].VideoURL)
	}
	if posts[0].StreamURL == nil || *posts[0].StreamURL != "https://cdn.telesco.pe/v8.m3u8" {
		t.Fatalf("ожидали HLS источник, получили %v", posts[0].StreamURL)
	}
}

func TestNegativeResultCached(t *testing.T) {
	fetcher := &fakeEmbedFetcher{pages: map[string][]byte{
		"9": []byte(`<html><body>ничего похожего на видео</body></html>`),
	}}
	resolver := newTestResolver(t, fetcher, 5)

	posts := []domain.Post{videoPost("9")}
	resolver.ResolveMissing(context.Background(), "example", posts)
	if posts[0].VideoURL != nil || posts[0].StreamURL != nil {
		t.Fatalf("ожидали неразрешённый пост")
	}

	// Повторный проход в пределах TTL не дёргает сеть.
	posts = []domain.Post{videoPost("9")}
	resolver.ResolveMissing(context.Background(), "example", posts)
	if fetcher.callCount("9") != 1 {
		t.Fatalf("отрицательный результат должен кэшироваться, вызовов %d", fetcher.callCount("9"))
	}
}

func TestFetchErrorIsolated(t *testing.T) {
	fetcher := &fakeEmbedFetcher{
		pages: map[string][]byte{
			"2": []byte(`<meta property="og:video" content="https://cdn.telesco.pe/v2.mp4">`),
		},
		err: nil,
	}
	// Первый пост падает (страницы нет — pages возвращает nil, матчей нет),
	// второй разрешается независимо.
	resolver := newTestResolver(t, fetcher, 5)
	posts := []domain.Post{videoPost("1"), videoPost("2")}
	resolver.ResolveMissing(context.Background(), "example", posts)

	if posts[0].VideoURL != nil {
		t.Fatalf("пост без совпадений должен остаться неразрешённым")
	}
	if posts[1].VideoURL == nil {
		t.Fatalf("сосед не должен страдать от чужой неудачи")
	}
}

func TestBoundedAttemptsPerRequest(t *testing.T) {
	fetcher := &fakeEmbedFetcher{pages: map[string][]byte{}}
	resolver := newTestResolver(t, fetcher, 2)

	posts := []domain.Post{videoPost("1"), videoPost("2"), videoPost("3"), videoPost("4")}
	resolver.ResolveMissing(context.Background(), "example", posts)

	total := 0
	for _, id := range []string{"1", "2", "3", "4"} {
		total += fetcher.callCount(id)
	}
	if total != 2 {
		t.Fatalf("за один запрос допускается 2 попытки, сделано %d", total)
	}
}

func TestSkipsResolvedAndNonVideo(t *testing.T) {
	fetcher := &fakeEmbedFetcher{pages: map[string][]byte{}}
	resolver := newTestResolver(t, fetcher, 5)

	already := "https://cdn.telesco.pe/done.mp4"
	posts := []domain.Post{
		{ID: "1", MediaKind: domain.MediaImage},
		{ID: "2", MediaKind: domain.MediaVideo, VideoURL: &already},
		{ID: "3", MediaKind: domain.MediaNone},
	}
	resolver.ResolveMissing(context.Background(), "example", posts)
	for _, id := range []string{"1", "2", "3"} {
		if fetcher.callCount(id) != 0 {
			t.Fatalf("пост %s не должен был резолвиться", id)
		}
	}
}
