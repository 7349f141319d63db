package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const itunesSearchURL = "https://itunes.apple.com/search"

// ITunesProvider ищет треки через iTunes Search API. Бесплатный, без ключа,
// с щедрыми лимитами; метаданные хорошо матчатся с song.link.
type ITunesProvider struct {
	client  *http.Client
	baseURL string
}

func NewITunesProvider() *ITunesProvider {
	return &ITunesProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: itunesSearchURL,
	}
}

// NewITunesProviderWithBaseURL используется в тестах для подмены эндпоинта.
func NewITunesProviderWithBaseURL(baseURL string) *ITunesProvider {
	p := NewITunesProvider()
	p.baseURL = baseURL
	return p
}

func (p *ITunesProvider) Name() string { return "iTunes" }

type itunesTrack struct {
	TrackViewURL   string `json:"trackViewUrl"`
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
}

type itunesResponse struct {
	ResultCount int           `json:"resultCount"`
	Results     []itunesTrack `json:"results"`
}

func (p *ITunesProvider) SearchTrack(ctx context.Context, artist, title string, album *string) (*TrackResult, error) {
	params := url.Values{}
	params.Set("term", artist+" "+title)
	params.Set("entity", "song")
	params.Set("limit", "1")
	params.Set("media", "music")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: iTunes request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s - %s", ErrTrackNotFound, artist, title)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: iTunes returned status %d", ErrUpstream, resp.StatusCode)
	}

	var data itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode iTunes response: %v", ErrUpstream, err)
	}
	if len(data.Results) == 0 {
		return nil, fmt.Errorf("%w: %s - %s", ErrTrackNotFound, artist, title)
	}

	track := data.Results[0]
	result := &TrackResult{
		TrackURL:   track.TrackViewURL,
		TrackName:  track.TrackName,
		ArtistName: track.ArtistName,
	}
	if track.CollectionName != "" {
		result.AlbumName = &track.CollectionName
	}
	if track.ArtworkURL100 != "" {
		// iTunes отдает обложку 100x100, та же ссылка работает для 600x600.
		artwork := strings.Replace(track.ArtworkURL100, "100x100", "600x600", 1)
		result.ArtworkURL = &artwork
	}
	return result, nil
}
