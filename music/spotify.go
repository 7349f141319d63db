package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	spotifyTokenURL  = "https://accounts.spotify.com/api/token"
	spotifySearchURL = "https://api.spotify.com/v1/search"
)

// SpotifyProvider ищет треки через Spotify Web API с client credentials flow.
// Требует SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET; токен кешируется и
// обновляется за минуту до истечения.
type SpotifyProvider struct {
	client       *http.Client
	clientID     string
	clientSecret string
	tokenURL     string
	searchURL    string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewSpotifyProvider(clientID, clientSecret string) *SpotifyProvider {
	return &SpotifyProvider{
		client:       &http.Client{Timeout: 10 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     spotifyTokenURL,
		searchURL:    spotifySearchURL,
	}
}

func (p *SpotifyProvider) Name() string { return "Spotify" }

func (p *SpotifyProvider) getAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build token request: %v", ErrUpstream, err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: spotify token request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: spotify token endpoint returned status %d", ErrUpstream, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode spotify token response: %v", ErrUpstream, err)
	}

	p.accessToken = tokenResp.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return p.accessToken, nil
}

type spotifyTrack struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

func (p *SpotifyProvider) SearchTrack(ctx context.Context, artist, title string, album *string) (*TrackResult, error) {
	token, err := p.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("artist:%s track:%s", artist, title)
	if album != nil && *album != "" {
		query += fmt.Sprintf(" album:%s", *album)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build search request: %v", ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify search failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: spotify returned status %d", ErrUpstream, resp.StatusCode)
	}

	var data struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode spotify response: %v", ErrUpstream, err)
	}
	if len(data.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrTrackNotFound, artist, title)
	}

	track := data.Tracks.Items[0]
	result := &TrackResult{
		TrackURL:  track.ExternalURLs.Spotify,
		TrackName: track.Name,
	}
	if len(track.Artists) > 0 {
		result.ArtistName = track.Artists[0].Name
	}
	if track.Album.Name != "" {
		albumName := track.Album.Name
		result.AlbumName = &albumName
	}
	if len(track.Album.Images) > 0 {
		artwork := track.Album.Images[0].URL
		result.ArtworkURL = &artwork
	}
	return result, nil
}
