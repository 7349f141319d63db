package tidal

import (
	"regexp"
	"strconv"
)

// Порядок важен: сначала специфичные формы, затем общий /track/ фолбэк.
var trackURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`tidal\.com/browse/track/(\d+)`),
	regexp.MustCompile(`listen\.tidal\.com/track/(\d+)`),
	regexp.MustCompile(`tidal://track/(\d+)`),
	regexp.MustCompile(`/track/(\d+)`),
}

// ExtractTrackID достает числовой id трека из ссылки Tidal в любом из
// известных форматов. Возвращает 0, если ссылка не распознана.
func ExtractTrackID(tidalURL string) int64 {
	if tidalURL == "" {
		return 0
	}
	for _, pattern := range trackURLPatterns {
		if match := pattern.FindStringSubmatch(tidalURL); match != nil {
			id, err := strconv.ParseInt(match[1], 10, 64)
			if err == nil {
				return id
			}
		}
	}
	return 0
}
