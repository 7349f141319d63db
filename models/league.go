package models

import "time"

// League представляет лигу: группу пользователей, которые по очереди
// проводят тематические раунды.
type League struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description,omitempty" db:"description"`
	InviteCode    string    `json:"invite_code" db:"invite_code"`
	CreatedByID   int       `json:"created_by_id" db:"created_by_id"`
	SongsPerRound int       `json:"songs_per_round" db:"songs_per_round"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Members []LeagueMember `json:"members,omitempty" db:"-"`
}

type LeagueMember struct {
	ID       int       `json:"id" db:"id"`
	LeagueID int       `json:"league_id" db:"league_id"`
	UserID   int       `json:"user_id" db:"user_id"`
	IsAdmin  bool      `json:"is_admin" db:"is_admin"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`

	UserName *string `json:"user_name,omitempty" db:"-"`
}
