package domain

import "time"

// MediaKind описывает тип медиа в посте.
type MediaKind string

const (
	MediaNone  MediaKind = ""
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// ChannelInfo содержит метаданные канала со страницы предпросмотра.
// Отдаётся только на первой странице сессии.
type ChannelInfo struct {
	Name        string  `json:"name"`
	Avatar      *string `json:"avatar"`
	Description *string `json:"description"`
	Subscribers *string `json:"subscribers"`
}

// Post представляет один пост публичного канала.
type Post struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"date"`
	Permalink   string    `json:"link"`
	Media       *string   `json:"media"`
	MediaKind   MediaKind `json:"mediaType,omitempty"`
	VideoURL    *string   `json:"videoUrl,omitempty"`
	StreamURL   *string   `json:"streamUrl,omitempty"`
	Avatar      *string   `json:"avatar"`
	DeepLink    *string   `json:"deepLink,omitempty"`
}

// HasMedia сообщает, есть ли у поста хоть какая-то медиа-ссылка.
func (p Post) HasMedia() bool {
	return p.Media != nil || p.VideoURL != nil || p.StreamURL != nil
}

// ParsedPage — результат разбора одной HTML-страницы предпросмотра.
type ParsedPage struct {
	ChannelInfo ChannelInfo
	Posts       []Post
}

// FeedPage — готовый ответ ингестии для одной страницы ленты.
type FeedPage struct {
	ChannelInfo *ChannelInfo `json:"channelInfo,omitempty"`
	Posts       []Post       `json:"posts"`
	NextBefore  *string      `json:"nextBefore"`
	HasMore     bool         `json:"hasMore"`
	Cached      bool         `json:"cached"`
}

// FeedQuery описывает параметры запроса страницы ленты.
type FeedQuery struct {
	Channel string
	Before  string
	Limit   int
}

// EmbedResult — итог разрешения видео через embed-страницу.
// Отрицательный результат тоже кэшируется, поэтому оба поля могут быть nil.
type EmbedResult struct {
	VideoURL  *string `json:"videoUrl"`
	StreamURL *string `json:"streamUrl"`
}

// Resolved сообщает, удалось ли получить хотя бы один источник.
func (r EmbedResult) Resolved() bool {
	return r.VideoURL != nil || r.StreamURL != nil
}
