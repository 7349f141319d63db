package music

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultSonglinkAPIURL = "https://api.song.link/v1-alpha.1/links"

// SonglinkResult — универсальная страница трека и ссылки по платформам.
type SonglinkResult struct {
	PageURL    string
	Title      *string
	ArtistName *string
	ArtworkURL *string
	// Ключи платформ в терминах song.link: spotify, appleMusic, youtube,
	// youtubeMusic, amazon, tidal, deezer.
	LinksByPlatform map[string]string
}

func (r *SonglinkResult) PlatformURL(platform string) *string {
	if link, ok := r.LinksByPlatform[platform]; ok && link != "" {
		return &link
	}
	return nil
}

// SonglinkClient резолвит ссылку любой платформы в набор кросс-платформенных
// ссылок через song.link (Odesli).
type SonglinkClient struct {
	client  *http.Client
	baseURL string
}

func NewSonglinkClient(baseURL string) *SonglinkClient {
	if baseURL == "" {
		baseURL = DefaultSonglinkAPIURL
	}
	return &SonglinkClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type songlinkResponse struct {
	PageURL            string                    `json:"pageUrl"`
	EntitiesByUniqueID map[string]songlinkEntity `json:"entitiesByUniqueId"`
	LinksByPlatform    map[string]songlinkLink   `json:"linksByPlatform"`
	EntityUniqueID     string                    `json:"entityUniqueId"`
}

type songlinkEntity struct {
	Title        string `json:"title"`
	ArtistName   string `json:"artistName"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type songlinkLink struct {
	URL string `json:"url"`
}

func (c *SonglinkClient) Resolve(ctx context.Context, trackURL string) (*SonglinkResult, error) {
	params := url.Values{}
	params.Set("url", trackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrUpstream, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: song.link request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: song.link could not process URL %s", ErrTrackNotFound, trackURL)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: song.link returned status %d", ErrUpstream, resp.StatusCode)
	}

	var data songlinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode song.link response: %v", ErrUpstream, err)
	}

	result := &SonglinkResult{
		PageURL:         data.PageURL,
		LinksByPlatform: make(map[string]string, len(data.LinksByPlatform)),
	}
	for platform, link := range data.LinksByPlatform {
		result.LinksByPlatform[platform] = link.URL
	}

	// Метаданные берем из сущности, на которую указывает entityUniqueId,
	// с фолбэком на первую попавшуюся.
	entity, ok := data.EntitiesByUniqueID[data.EntityUniqueID]
	if !ok {
		for _, e := range data.EntitiesByUniqueID {
			entity = e
			break
		}
	}
	if entity.Title != "" {
		result.Title = &entity.Title
	}
	if entity.ArtistName != "" {
		result.ArtistName = &entity.ArtistName
	}
	if entity.ThumbnailURL != "" {
		result.ArtworkURL = &entity.ThumbnailURL
	}

	return result, nil
}
