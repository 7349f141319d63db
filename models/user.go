package models

import "time"

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AvatarKey    *string   `json:"-" db:"avatar_key"`
	AvatarURL    *string   `json:"avatar_url,omitempty" db:"-"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Tidal OAuth session (unofficial API, may break without notice).
	// Session data is an opaque JSON blob handled by the tidal package.
	TidalUserID      *string `json:"tidal_user_id,omitempty" db:"tidal_user_id"`
	TidalSessionData *string `json:"-" db:"tidal_session_data"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
