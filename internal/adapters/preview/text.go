package preview

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	brRe      = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	decimalRe = regexp.MustCompile(`&#(\d+);`)
	hexRe     = regexp.MustCompile(`&#x([0-9a-fA-F]+);`)
)

var namedEntities = strings.NewReplacer(
	"&quot;", `"`,
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&nbsp;", " ",
)

// normalizeText превращает HTML-фрагмент в плоский текст:
// переводы строк сохраняются, теги вырезаются, сущности декодируются.
func normalizeText(fragment string) string {
	text := brRe.ReplaceAllString(fragment, "\n")
	text = tagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(decodeEntities(text))
}

// decodeEntities раскрывает именованные и числовые HTML-сущности.
func decodeEntities(s string) string {
	s = namedEntities.Replace(s)
	s = decimalRe.ReplaceAllStringFunc(s, func(m string) string {
		num, err := strconv.Atoi(decimalRe.FindStringSubmatch(m)[1])
		if err != nil {
			return m
		}
		return string(rune(num))
	})
	s = hexRe.ReplaceAllStringFunc(s, func(m string) string {
		num, err := strconv.ParseInt(hexRe.FindStringSubmatch(m)[1], 16, 32)
		if err != nil {
			return m
		}
		return string(rune(num))
	})
	return s
}

// ensureScheme дополняет протокольно-относительные URL схемой https.
func ensureScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		return "https:" + rawURL
	}
	return rawURL
}

var backgroundImageRe = regexp.MustCompile(`background-image:\s*url\(['"]?([^'")]+)['"]?\)`)

// backgroundImageURL достаёт URL из inline-стиля background-image.
func backgroundImageURL(style string) string {
	m := backgroundImageRe.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return m[1]
}
