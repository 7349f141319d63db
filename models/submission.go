package models

import "time"

// Submission — заявка участника на раунд, содержит 1..N песен
// (ровно songs_per_round лиги на момент создания).
type Submission struct {
	ID          int       `json:"id" db:"id"`
	RoundID     int       `json:"round_id" db:"round_id"`
	UserID      int       `json:"user_id" db:"user_id"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`

	Songs []Song `json:"songs" db:"-"`

	// Имя отправителя показывается только после завершения раунда.
	UserName *string `json:"user_name,omitempty" db:"-"`
}

// Song — метаданные одной песни плюс кросс-платформенные ссылки.
type Song struct {
	ID           int     `json:"id" db:"id"`
	SubmissionID int     `json:"submission_id" db:"submission_id"`
	Title        string  `json:"song_title" db:"song_title"`
	ArtistName   string  `json:"artist_name" db:"artist_name"`
	AlbumName    *string `json:"album_name,omitempty" db:"album_name"`

	// Ссылки от song.link API
	SonglinkURL     string  `json:"songlink_url" db:"songlink_url"`
	SpotifyURL      *string `json:"spotify_url,omitempty" db:"spotify_url"`
	AppleMusicURL   *string `json:"apple_music_url,omitempty" db:"apple_music_url"`
	YoutubeURL      *string `json:"youtube_url,omitempty" db:"youtube_url"`
	YoutubeMusicURL *string `json:"youtube_music_url,omitempty" db:"youtube_music_url"`
	AmazonMusicURL  *string `json:"amazon_music_url,omitempty" db:"amazon_music_url"`
	TidalURL        *string `json:"tidal_url,omitempty" db:"tidal_url"`
	DeezerURL       *string `json:"deezer_url,omitempty" db:"deezer_url"`
	ArtworkURL      *string `json:"artwork_url,omitempty" db:"artwork_url"`

	// Позиция внутри заявки, 1-based.
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
