package preview

import (
	"testing"

	"tg-preview-feed/internal/domain"
)

func parseSingle(t *testing.T, body string) domain.Post {
	t.Helper()
	html := `<html><body><div class="tgme_widget_message" data-post="example/7">` + body +
		`<time datetime="2024-01-15T10:00:00+00:00">10:00</time></div></body></html>`
	page := newTestParser().ParseChannelPage([]byte(html), "example")
	if len(page.Posts) != 1 {
		t.Fatalf("ожидали один пост, получили %d", len(page.Posts))
	}
	return page.Posts[0]
}

func TestVideoPlayerWithSources(t *testing.T) {
	post := parseSingle(t, `
<div class="tgme_widget_message_video_player">
  <video src="//cdn.telesco.pe/video7.mp4" poster="//cdn.telesco.pe/poster7.jpg"></video>
  <source type="application/x-mpegURL" src="//cdn.telesco.pe/stream7.m3u8">
</div>`)

	if post.MediaKind != domain.MediaVideo {
		t.Fatalf("ожидали video, получили %q", post.MediaKind)
	}
	if post.VideoURL == nil || *post.VideoURL != "https://cdn.telesco.pe/video7.mp4" {
		t.Fatalf("ожидали нормализованный mp4, получили %v", post.VideoURL)
	}
	if post.StreamURL == nil || *post.StreamURL != "https://cdn.telesco.pe/stream7.m3u8" {
		t.Fatalf("ожидали нормализованный HLS, получили %v", post.StreamURL)
	}
	if post.Media == nil || *post.Media != "https://cdn.telesco.pe/poster7.jpg" {
		t.Fatalf("ожидали постер как миниатюру, получили %v", post.Media)
	}
}

func TestVideoPlayerDataAttrSource(t *testing.T) {
	post := parseSingle(t, `
<div class="tgme_widget_message_video_player">
  <i data-src="https://cdn.telesco.pe/data7.mp4?token=x"></i>
</div>`)

	if post.VideoURL == nil || *post.VideoURL != "https://cdn.telesco.pe/data7.mp4?token=x" {
		t.Fatalf("ожидали mp4 из data-атрибута, получили %v", post.VideoURL)
	}
}

func TestVideoBeatsImage(t *testing.T) {
	post := parseSingle(t, `
<div class="tgme_widget_message_video_player">
  <i style="background-image:url('//cdn.telesco.pe/thumb.jpg')"></i>
</div>
<a class="tgme_widget_message_photo_wrap" style="background-image:url('//cdn.telesco.pe/photo.jpg')"></a>`)

	if post.MediaKind != domain.MediaVideo {
		t.Fatalf("видеоплеер приоритетнее фото, получили %q", post.MediaKind)
	}
}

func TestVideoWrapThumbnailFallback(t *testing.T) {
	post := parseSingle(t, `
<div class="tgme_widget_message_video_player"></div>
<a class="tgme_widget_message_video_wrap" style="background-image:url('//cdn.telesco.pe/wrap.jpg')"></a>`)

	if post.Media == nil || *post.Media != "https://cdn.telesco.pe/wrap.jpg" {
		t.Fatalf("ожидали миниатюру из video_wrap, получили %v", post.Media)
	}
}
