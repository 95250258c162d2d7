package domain

import (
	"context"
	"time"
)

// PageFetcher загружает страницы t.me.
type PageFetcher interface {
	FetchPreviewPage(ctx context.Context, channel, before string) ([]byte, error)
	FetchEmbedPage(ctx context.Context, channel, postID string) ([]byte, error)
}

// ChannelParser разбирает HTML предпросмотра в структурные записи.
// Разбор никогда не возвращает ошибку: отсутствие поля даёт его нулевое значение.
type ChannelParser interface {
	ParseChannelPage(html []byte, channel string) ParsedPage
}

// EmbedResolver дополняет видео-посты источниками из embed-страниц.
type EmbedResolver interface {
	ResolveMissing(ctx context.Context, channel string, posts []Post)
}

// FeedProvider отдаёт страницу ленты канала.
type FeedProvider interface {
	GetPage(ctx context.Context, query FeedQuery) (FeedPage, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
