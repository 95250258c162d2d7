package preview

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"tg-preview-feed/internal/domain"
	"tg-preview-feed/internal/infra/metrics"
)

// AvatarExtractor — одна стратегия извлечения аватара канала.
// Стратегии перебираются по порядку до первого успеха, поэтому новый
// вариант разметки добавляется в список без правки остального кода.
type AvatarExtractor struct {
	Name    string
	Extract func(doc *goquery.Document) string
}

// DefaultAvatarExtractors возвращает стратегии в порядке убывания точности.
func DefaultAvatarExtractors() []AvatarExtractor {
	return []AvatarExtractor{
		{Name: "page_photo_image", Extract: func(doc *goquery.Document) string {
			return doc.Find("img.tgme_page_photo_image").First().AttrOr("src", "")
		}},
		{Name: "page_photo_nested_img", Extract: func(doc *goquery.Document) string {
			return doc.Find("div.tgme_page_photo img").First().AttrOr("src", "")
		}},
		{Name: "page_photo_background", Extract: func(doc *goquery.Document) string {
			return backgroundImageURL(doc.Find("div.tgme_page_photo").First().AttrOr("style", ""))
		}},
		{Name: "og_image", Extract: func(doc *goquery.Document) string {
			return doc.Find("meta[property='og:image']").First().AttrOr("content", "")
		}},
		{Name: "twitter_image", Extract: func(doc *goquery.Document) string {
			return doc.Find("meta[property='twitter:image']").First().AttrOr("content", "")
		}},
	}
}

// Parser извлекает метаданные канала и посты из HTML предпросмотра.
type Parser struct {
	avatarExtractors []AvatarExtractor
	linkNeedle       string
	now              func() time.Time
	log              zerolog.Logger
}

// Option настраивает Parser.
type Option func(*Parser)

// WithAvatarExtractors заменяет каскад стратегий аватара.
func WithAvatarExtractors(extractors []AvatarExtractor) Option {
	return func(p *Parser) { p.avatarExtractors = extractors }
}

// WithLinkNeedle включает извлечение deep-link по подстроке.
func WithLinkNeedle(needle string) Option {
	return func(p *Parser) { p.linkNeedle = strings.ToLower(needle) }
}

// NewParser создаёт парсер страниц предпросмотра.
func NewParser(log zerolog.Logger, opts ...Option) *Parser {
	p := &Parser{
		avatarExtractors: DefaultAvatarExtractors(),
		now:              time.Now,
		log:              log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseChannelPage разбирает страницу в метаданные канала и список постов.
// Ошибок не возвращает: битый HTML даёт пустой список и нулевые поля.
func (p *Parser) ParseChannelPage(html []byte, channel string) domain.ParsedPage {
	page := domain.ParsedPage{ChannelInfo: domain.ChannelInfo{Name: channel}}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("parser: HTML не разобран")
		return page
	}

	p.parseChannelInfo(doc, &page.ChannelInfo)

	doc.Find("div[data-post]").Each(func(_ int, s *goquery.Selection) {
		if !s.HasClass("tgme_widget_message") {
			return
		}
		post, ok := p.parsePost(s, channel, page.ChannelInfo.Avatar)
		if !ok {
			return
		}
		page.Posts = append(page.Posts, post)
		metrics.ParsedPostsTotal.Inc()
	})

	return page
}

func (p *Parser) parseChannelInfo(doc *goquery.Document, info *domain.ChannelInfo) {
	for _, extractor := range p.avatarExtractors {
		if raw := extractor.Extract(doc); raw != "" {
			avatar := ensureScheme(raw)
			info.Avatar = &avatar
			p.log.Debug().Str("strategy", extractor.Name).Str("avatar", avatar).Msg("parser: аватар канала найден")
			break
		}
	}

	if title := strings.TrimSpace(doc.Find("div.tgme_page_title span").First().Text()); title != "" {
		info.Name = title
	}

	if desc := doc.Find("div.tgme_page_description").First(); desc.Length() > 0 {
		if fragment, err := desc.Html(); err == nil {
			if text := normalizeText(fragment); text != "" {
				info.Description = &text
			}
		}
	}

	if extra := strings.TrimSpace(doc.Find("div.tgme_page_extra").First().Text()); extra != "" {
		if strings.Contains(strings.ToLower(extra), "subscriber") {
			info.Subscribers = &extra
		}
	}
}

// parsePost разбирает один блок сообщения. Второй результат false
// означает, что пост отбрасывается (служебный или пустой).
func (p *Parser) parsePost(s *goquery.Selection, channel string, channelAvatar *string) (domain.Post, bool) {
	dataPost := s.AttrOr("data-post", "")
	segments := strings.Split(dataPost, "/")
	id := segments[len(segments)-1]
	if id == "" {
		return domain.Post{}, false
	}

	var text string
	if textSel := s.Find("div.tgme_widget_message_text").First(); textSel.Length() > 0 {
		if fragment, err := textSel.Html(); err == nil {
			text = normalizeText(fragment)
		}
	}

	if IsServiceMessage(text) {
		metrics.ServiceMessagesFiltered.Inc()
		p.log.Debug().Str("post", dataPost).Msg("parser: служебное сообщение отброшено")
		return domain.Post{}, false
	}

	publishedAt := p.now().UTC()
	if datetime := s.Find("time[datetime]").First().AttrOr("datetime", ""); datetime != "" {
		if parsed, err := time.Parse(time.RFC3339, datetime); err == nil {
			publishedAt = parsed
		}
	}

	media, kind, videoURL, streamURL := classifyMedia(s)

	post := domain.Post{
		ID:          id,
		Text:        text,
		PublishedAt: publishedAt,
		Permalink:   fmt.Sprintf("https://t.me/%s/%s", channel, id),
		Media:       media,
		MediaKind:   kind,
		VideoURL:    videoURL,
		StreamURL:   streamURL,
		Avatar:      p.postAvatar(s, channelAvatar),
		DeepLink:    p.deepLink(s),
	}

	if post.Text == "" && post.Media == nil && post.MediaKind != domain.MediaVideo {
		return domain.Post{}, false
	}
	return post, true
}

// postAvatar достаёт аватар автора поста. Эмодзи-заглушки t.me
// отбрасываются в пользу аватара канала.
func (p *Parser) postAvatar(s *goquery.Selection, channelAvatar *string) *string {
	var avatar string
	s.Find(".tgme_widget_message_user_photo").EachWithBreak(func(_ int, photo *goquery.Selection) bool {
		if raw := backgroundImageURL(photo.AttrOr("style", "")); raw != "" {
			avatar = ensureScheme(raw)
			return false
		}
		if src := photo.Find("img").First().AttrOr("src", ""); src != "" {
			avatar = ensureScheme(src)
			return false
		}
		return true
	})
	if strings.Contains(avatar, "telegram.org/img/emoji") {
		avatar = ""
	}
	if avatar == "" {
		return channelAvatar
	}
	return &avatar
}

// deepLink находит первую ссылку, содержащую настроенную подстроку
// в адресе или тексте.
func (p *Parser) deepLink(s *goquery.Selection) *string {
	if p.linkNeedle == "" {
		return nil
	}
	var link string
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		if strings.Contains(strings.ToLower(href), p.linkNeedle) ||
			strings.Contains(strings.ToLower(a.Text()), p.linkNeedle) {
			link = href
			return false
		}
		return true
	})
	if link == "" {
		return nil
	}
	return &link
}

var _ domain.ChannelParser = (*Parser)(nil)
