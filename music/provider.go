package music

import (
	"context"
	"errors"
)

var (
	ErrTrackNotFound = errors.New("track not found")
	// ErrUpstream — провайдер недоступен или ответил ошибкой. Отделяем от
	// ErrTrackNotFound, чтобы наверху отдавать 502, а не 404.
	ErrUpstream = errors.New("music provider unavailable")
)

// TrackResult — метаданные трека от поискового провайдера.
type TrackResult struct {
	TrackURL   string
	TrackName  string
	ArtistName string
	AlbumName  *string
	ArtworkURL *string
}

// SearchProvider — поиск трека по артисту и названию. Реализации: iTunes
// (без ключа) и Spotify (client credentials). Провайдер выбирается конфигом.
type SearchProvider interface {
	SearchTrack(ctx context.Context, artist, title string, album *string) (*TrackResult, error)
	Name() string
}
