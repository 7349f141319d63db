package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mixclub/music-league/music"
)

// MusicSearchResult — объединенный ответ: метаданные провайдера плюс
// кросс-платформенные ссылки song.link.
type MusicSearchResult struct {
	SonglinkURL     string  `json:"songlink_url"`
	SongTitle       *string `json:"song_title"`
	ArtistName      *string `json:"artist_name"`
	AlbumName       *string `json:"album_name"`
	ArtworkURL      *string `json:"artwork_url"`
	SpotifyURL      *string `json:"spotify_url"`
	AppleMusicURL   *string `json:"apple_music_url"`
	YoutubeURL      *string `json:"youtube_url"`
	YoutubeMusicURL *string `json:"youtube_music_url"`
	AmazonMusicURL  *string `json:"amazon_music_url"`
	TidalURL        *string `json:"tidal_url"`
	DeezerURL       *string `json:"deezer_url"`
}

type MusicService interface {
	// SearchSong ищет трек у провайдера и резолвит ссылки через song.link.
	// Метаданные провайдера считаем точнее метаданных song.link.
	SearchSong(ctx context.Context, artist, title string, album *string) (*MusicSearchResult, error)
	// GetSongByURL резолвит прямую ссылку платформы, минуя поиск.
	GetSongByURL(ctx context.Context, url string) (*MusicSearchResult, error)
}

type musicService struct {
	provider music.SearchProvider
	songlink *music.SonglinkClient
	logger   *slog.Logger
}

func NewMusicService(provider music.SearchProvider, songlink *music.SonglinkClient, logger *slog.Logger) MusicService {
	return &musicService{
		provider: provider,
		songlink: songlink,
		logger:   logger,
	}
}

func (s *musicService) SearchSong(ctx context.Context, artist, title string, album *string) (*MusicSearchResult, error) {
	track, err := s.provider.SearchTrack(ctx, artist, title, album)
	if err != nil {
		return nil, s.mapMusicError(err)
	}
	if track.TrackURL == "" {
		return nil, fmt.Errorf("%w: no track URL returned from %s", ErrMusicUpstream, s.provider.Name())
	}

	links, err := s.songlink.Resolve(ctx, track.TrackURL)
	if err != nil {
		return nil, s.mapMusicError(err)
	}

	result := resultFromLinks(links)
	result.SongTitle = &track.TrackName
	result.ArtistName = &track.ArtistName
	result.AlbumName = track.AlbumName
	if track.ArtworkURL != nil {
		result.ArtworkURL = track.ArtworkURL
	}
	return result, nil
}

func (s *musicService) GetSongByURL(ctx context.Context, url string) (*MusicSearchResult, error) {
	links, err := s.songlink.Resolve(ctx, url)
	if err != nil {
		return nil, s.mapMusicError(err)
	}

	result := resultFromLinks(links)
	result.SongTitle = links.Title
	result.ArtistName = links.ArtistName
	return result, nil
}

func resultFromLinks(links *music.SonglinkResult) *MusicSearchResult {
	return &MusicSearchResult{
		SonglinkURL:     links.PageURL,
		ArtworkURL:      links.ArtworkURL,
		SpotifyURL:      links.PlatformURL("spotify"),
		AppleMusicURL:   links.PlatformURL("appleMusic"),
		YoutubeURL:      links.PlatformURL("youtube"),
		YoutubeMusicURL: links.PlatformURL("youtubeMusic"),
		AmazonMusicURL:  links.PlatformURL("amazon"),
		TidalURL:        links.PlatformURL("tidal"),
		DeezerURL:       links.PlatformURL("deezer"),
	}
}

func (s *musicService) mapMusicError(err error) error {
	switch {
	case errors.Is(err, music.ErrTrackNotFound):
		return fmt.Errorf("%w: %v", ErrTrackNotFound, err)
	case errors.Is(err, music.ErrUpstream):
		s.logger.Warn("music provider error", "provider", s.provider.Name(), "error", err)
		return fmt.Errorf("%w: %v", ErrMusicUpstream, err)
	default:
		return err
	}
}
