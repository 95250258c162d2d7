package preview

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tg-preview-feed/internal/domain"
)

// classifyMedia определяет тип медиа поста и его источники.
// Блок видеоплеера имеет приоритет над статичным изображением; видео
// без извлекаемого источника остаётся видео с одной миниатюрой —
// источник добирается резолвером embed-страниц.
func classifyMedia(s *goquery.Selection) (media *string, kind domain.MediaKind, videoURL, streamURL *string) {
	player := s.Find("div.tgme_widget_message_video_player").First()
	if player.Length() > 0 {
		kind = domain.MediaVideo
		videoURL = findMP4(player)
		streamURL = findHLS(player)
		media = playerThumbnail(player)
		if media == nil {
			if raw := backgroundImageURL(s.Find("a.tgme_widget_message_video_wrap").First().AttrOr("style", "")); raw != "" {
				normalized := ensureScheme(raw)
				media = &normalized
			}
		}
		return media, kind, videoURL, streamURL
	}

	if raw := backgroundImageURL(s.Find("a.tgme_widget_message_photo_wrap").First().AttrOr("style", "")); raw != "" {
		normalized := ensureScheme(raw)
		return &normalized, domain.MediaImage, nil, nil
	}

	return nil, domain.MediaNone, nil, nil
}

// findMP4 перебирает варианты разметки прямого источника MP4.
func findMP4(player *goquery.Selection) *string {
	if src := player.Find("video[src]").First().AttrOr("src", ""); strings.Contains(src, ".mp4") {
		return normalized(src)
	}
	if src := player.Find("source[type='video/mp4']").First().AttrOr("src", ""); src != "" {
		return normalized(src)
	}
	var found string
	player.Find("[data-src], [data-video], [data-content]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		for _, attr := range []string{"data-src", "data-video", "data-content"} {
			if v := el.AttrOr(attr, ""); strings.Contains(v, ".mp4") {
				found = v
				return false
			}
		}
		return true
	})
	if found != "" {
		return normalized(found)
	}
	return nil
}

// findHLS ищет сегментированный источник потока.
func findHLS(player *goquery.Selection) *string {
	if src := player.Find("source[type='application/x-mpegURL']").First().AttrOr("src", ""); src != "" {
		return normalized(src)
	}
	return nil
}

// playerThumbnail достаёт постер или фоновую картинку плеера.
func playerThumbnail(player *goquery.Selection) *string {
	if poster := player.Find("video[poster]").First().AttrOr("poster", ""); poster != "" {
		return normalized(poster)
	}
	var found string
	player.Find("[style]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if raw := backgroundImageURL(el.AttrOr("style", "")); raw != "" {
			found = raw
			return false
		}
		return true
	})
	if raw := backgroundImageURL(player.AttrOr("style", "")); found == "" && raw != "" {
		found = raw
	}
	if found == "" {
		return nil
	}
	return normalized(found)
}

func normalized(rawURL string) *string {
	u := ensureScheme(rawURL)
	return &u
}
