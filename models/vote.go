package models

import "time"

// Vote — один ранжированный выбор голосующего: (раунд, голосующий, песня, ранг).
// У голосующего не больше одной записи на каждый ранг в раунде.
type Vote struct {
	ID      int       `json:"id" db:"id"`
	RoundID int       `json:"round_id" db:"round_id"`
	VoterID int       `json:"voter_id" db:"voter_id"`
	SongID  int       `json:"song_id" db:"song_id"`
	Rank    int       `json:"rank" db:"rank"` // 1 = 1st place, 2 = 2nd place, 3 = 3rd place
	VotedAt time.Time `json:"voted_at" db:"voted_at"`

	VoterName *string `json:"voter_name,omitempty" db:"-"`
}

// UserVotes — набор голосов одного участника в раунде: все строки
// одного каста разделяют общий voted_at.
type UserVotes struct {
	RoundID       int       `json:"round_id"`
	RankedSongIDs []int     `json:"ranked_songs"`
	VotedAt       time.Time `json:"voted_at"`
}
