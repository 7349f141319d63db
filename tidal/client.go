// Package tidal интегрируется с неофициальным Tidal API. Tidal его не
// поддерживает и не документирует: интеграция может сломаться в любой момент.
package tidal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAuthBaseURL = "https://auth.tidal.com/v1/oauth2"
	defaultAPIBaseURL  = "https://api.tidal.com/v1"

	deviceAuthScope = "r_usr w_usr w_sub"
	deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"
)

var (
	// ErrAuthPending — пользователь еще не подтвердил авторизацию в браузере.
	ErrAuthPending    = errors.New("tidal authorization pending")
	ErrSessionExpired = errors.New("tidal session is invalid or expired")
	ErrUpstream       = errors.New("tidal unavailable")
)

type Client struct {
	httpClient  *http.Client
	clientID    string
	authBaseURL string
	apiBaseURL  string
}

func NewClient(clientID string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		clientID:    clientID,
		authBaseURL: defaultAuthBaseURL,
		apiBaseURL:  defaultAPIBaseURL,
	}
}

// DeviceAuth — параметры device-flow: пользователь открывает AuthURL,
// бэкенд опрашивает токен по DeviceCode.
type DeviceAuth struct {
	AuthURL    string `json:"auth_url"`
	DeviceCode string `json:"device_code"`
	UserCode   string `json:"user_code"`
	ExpiresIn  int    `json:"expires_in"`
	Interval   int    `json:"interval"`
}

func (c *Client) StartDeviceAuth(ctx context.Context) (*DeviceAuth, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("scope", deviceAuthScope)

	var resp struct {
		DeviceCode      string `json:"deviceCode"`
		UserCode        string `json:"userCode"`
		VerificationURI string `json:"verificationUri"`
		ExpiresIn       int    `json:"expiresIn"`
		Interval        int    `json:"interval"`
	}
	if err := c.postForm(ctx, c.authBaseURL+"/device_authorization", form, &resp); err != nil {
		return nil, err
	}

	return &DeviceAuth{
		AuthURL:    "https://link.tidal.com/" + resp.UserCode,
		DeviceCode: resp.DeviceCode,
		UserCode:   resp.UserCode,
		ExpiresIn:  resp.ExpiresIn,
		Interval:   resp.Interval,
	}, nil
}

// PollDeviceAuth проверяет, завершил ли пользователь авторизацию.
// Пока не завершил — ErrAuthPending; после завершения возвращает сессию
// и идентификатор пользователя Tidal.
func (c *Client) PollDeviceAuth(ctx context.Context, deviceCode string) (*Session, string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("device_code", deviceCode)
	form.Set("grant_type", deviceGrantType)
	form.Set("scope", deviceAuthScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: token request failed: %v", ErrUpstream, err)
	}
	defer httpResp.Body.Close()

	var resp struct {
		Error        string `json:"error"`
		TokenType    string `json:"token_type"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		User         struct {
			UserID int64 `json:"userId"`
		} `json:"user"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, "", fmt.Errorf("%w: failed to decode token response: %v", ErrUpstream, err)
	}

	if resp.Error == "authorization_pending" {
		return nil, "", ErrAuthPending
	}
	if httpResp.StatusCode != http.StatusOK || resp.AccessToken == "" {
		return nil, "", fmt.Errorf("%w: token endpoint returned status %d (%s)", ErrUpstream, httpResp.StatusCode, resp.Error)
	}

	expiry := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	session := &Session{
		TokenType:    resp.TokenType,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiryTime:   &expiry,
	}
	return session, strconv.FormatInt(resp.User.UserID, 10), nil
}

type Playlist struct {
	ID  string
	URL string
}

// CreatePlaylist создает плейлист пользователя и добавляет в него треки.
// Сессия передается аргументом, загруженная из строки пользователя.
func (c *Client) CreatePlaylist(ctx context.Context, session *Session, tidalUserID, name, description string, trackIDs []int64) (*Playlist, error) {
	if session.Expired() {
		return nil, ErrSessionExpired
	}

	form := url.Values{}
	form.Set("title", name)
	form.Set("description", description)

	var created struct {
		UUID string `json:"uuid"`
	}
	endpoint := fmt.Sprintf("%s/users/%s/playlists", c.apiBaseURL, url.PathEscape(tidalUserID))
	if err := c.postAuthedForm(ctx, session, endpoint, form, &created); err != nil {
		return nil, err
	}
	if created.UUID == "" {
		return nil, fmt.Errorf("%w: playlist creation returned no id", ErrUpstream)
	}

	if len(trackIDs) > 0 {
		ids := make([]string, len(trackIDs))
		for i, id := range trackIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		form := url.Values{}
		form.Set("trackIds", strings.Join(ids, ","))
		form.Set("onDupes", "SKIP")

		endpoint := fmt.Sprintf("%s/playlists/%s/items", c.apiBaseURL, created.UUID)
		if err := c.postAuthedForm(ctx, session, endpoint, form, nil); err != nil {
			return nil, err
		}
	}

	return &Playlist{
		ID:  created.UUID,
		URL: "https://tidal.com/browse/playlist/" + created.UUID,
	}, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUpstream, endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) postAuthedForm(ctx context.Context, session *Session, endpoint string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", session.TokenType+" "+session.AccessToken)
	// Tidal требует If-None-Match при мутациях плейлистов.
	req.Header.Set("If-None-Match", "*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", ErrUpstream, endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUpstream, err)
	}
	return nil
}
