package tidal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Session — OAuth-credentials пользователя Tidal. Хранится на строке
// пользователя как непрозрачный JSON и загружается на каждый запрос;
// глобального состояния сессии нет.
type Session struct {
	TokenType    string     `json:"token_type"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiryTime   *time.Time `json:"expiry_time"`
}

func ParseSession(data string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("%w: malformed session data: %v", ErrSessionExpired, err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("%w: session has no access token", ErrSessionExpired)
	}
	return &s, nil
}

func (s *Session) Marshal() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Expired — токен истек по сохраненному времени. Отсутствие ExpiryTime
// трактуем как действующий токен: сервер все равно ответит 401.
func (s *Session) Expired() bool {
	return s.ExpiryTime != nil && time.Now().After(*s.ExpiryTime)
}
