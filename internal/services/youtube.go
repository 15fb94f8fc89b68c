// YouTube Data API v3 client
//
// Response types follow https://developers.google.com/youtube/v3/docs
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytmix/internal/shared"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"

	// MaxBatchSize is the most IDs the videos endpoint accepts per call.
	MaxBatchSize = 50
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items         []T
	NextPageToken string
}

// VideoMetadata is the subset of a video resource used to qualify candidates.
type VideoMetadata struct {
	ID           string
	Title        string
	ChannelTitle string
	PublishedAt  time.Time
	Duration     string // ISO-8601, e.g. PT4M13S
}

type apiErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

type subscriptionListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			ResourceID struct {
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelListResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistResource struct {
	ID      string `json:"id,omitempty"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description,omitempty"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

type resourceID struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

type playlistItemResource struct {
	Snippet struct {
		PlaylistID string     `json:"playlistId"`
		ResourceID resourceID `json:"resourceId"`
	} `json:"snippet"`
}

// YouTubeService talks to the YouTube Data API with a bearer token read from a [TokenSource] per request.
type YouTubeService struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Data API client.
func NewYouTubeService(baseURL string, client *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &YouTubeService{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// WithTokens returns a copy of the service that authenticates with ts.
func (y *YouTubeService) WithTokens(ts TokenSource) *YouTubeService {
	c := *y
	c.tokens = ts
	return &c
}

func (y *YouTubeService) token(ctx context.Context) (string, error) {
	if y.tokens == nil {
		return "", shared.ErrNotAuthenticated
	}
	return y.tokens.AccessToken(ctx)
}

// call resolves the current token and performs the request.
func (y *YouTubeService) call(ctx context.Context, method, endpoint string, query url.Values, body, result any) error {
	token, err := y.token(ctx)
	if err != nil {
		return err
	}
	return y.doRequest(ctx, token, method, endpoint, query, body, result)
}

func (y *YouTubeService) doRequest(ctx context.Context, token, method, endpoint string, query url.Values, body, result any) error {
	if ctx.Err() != nil {
		return shared.CancelledError(ctx)
	}

	apiURL := y.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return shared.CancelledError(ctx)
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return shared.CancelledError(ctx)
		}
		return fmt.Errorf("failed to read response: %w", err)
	}

	// the API can report failure in the body of a 2xx response
	var envelope apiErrorBody
	_ = json.Unmarshal(data, &envelope)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || envelope.Error != nil {
		return newAPIError(resp.StatusCode, envelope)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// ValidateToken probes the API with token, returning nil when it is accepted.
func (y *YouTubeService) ValidateToken(ctx context.Context, token string) error {
	q := url.Values{"part": {"snippet"}, "mine": {"true"}, "maxResults": {"1"}}
	return y.doRequest(ctx, token, http.MethodGet, "/channels", q, nil, nil)
}

// Subscriptions lists one page of the caller's subscribed channel IDs.
func (y *YouTubeService) Subscriptions(ctx context.Context, cursor string, pageSize int) (*Page[string], error) {
	q := url.Values{"part": {"snippet"}, "mine": {"true"}, "maxResults": {strconv.Itoa(pageSize)}}
	if cursor != "" {
		q.Set("pageToken", cursor)
	}

	var resp subscriptionListResponse
	if err := y.call(ctx, http.MethodGet, "/subscriptions", q, nil, &resp); err != nil {
		return nil, err
	}

	page := &Page[string]{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if id := item.Snippet.ResourceID.ChannelID; id != "" {
			page.Items = append(page.Items, id)
		}
	}
	return page, nil
}

// UploadsPlaylist resolves a channel's uploads playlist ID.
func (y *YouTubeService) UploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	q := url.Values{"part": {"contentDetails"}, "id": {channelID}}

	var resp channelListResponse
	if err := y.call(ctx, http.MethodGet, "/channels", q, nil, &resp); err != nil {
		return "", err
	}

	if len(resp.Items) == 0 || resp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("%w: channel %s", shared.ErrNoUploads, channelID)
	}
	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// PlaylistItems lists one page of video IDs in a playlist.
func (y *YouTubeService) PlaylistItems(ctx context.Context, playlistID, cursor string, pageSize int) (*Page[string], error) {
	q := url.Values{
		"part":       {"contentDetails"},
		"playlistId": {playlistID},
		"maxResults": {strconv.Itoa(pageSize)},
	}
	if cursor != "" {
		q.Set("pageToken", cursor)
	}

	var resp playlistItemListResponse
	if err := y.call(ctx, http.MethodGet, "/playlistItems", q, nil, &resp); err != nil {
		return nil, err
	}

	page := &Page[string]{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if id := item.ContentDetails.VideoID; id != "" {
			page.Items = append(page.Items, id)
		}
	}
	return page, nil
}

// Videos fetches metadata for up to [MaxBatchSize] video IDs in a single call.
func (y *YouTubeService) Videos(ctx context.Context, ids []string) ([]VideoMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d ids exceeds batch limit of %d", shared.ErrInvalidArgument, len(ids), MaxBatchSize)
	}

	q := url.Values{"part": {"contentDetails,snippet"}, "id": {strings.Join(ids, ",")}}

	var resp videoListResponse
	if err := y.call(ctx, http.MethodGet, "/videos", q, nil, &resp); err != nil {
		return nil, err
	}

	videos := make([]VideoMetadata, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, VideoMetadata{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  item.Snippet.PublishedAt,
			Duration:     item.ContentDetails.Duration,
		})
	}
	return videos, nil
}

// CreatePlaylist creates a playlist owned by the caller and returns its ID.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	var body playlistResource
	body.Snippet.Title = title
	body.Snippet.Description = description
	body.Status.PrivacyStatus = privacy

	q := url.Values{"part": {"snippet,status"}}

	var created playlistResource
	if err := y.call(ctx, http.MethodPost, "/playlists", q, body, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: playlist created without id", shared.ErrAPIRequest)
	}
	return created.ID, nil
}

// InsertPlaylistItem appends a video to the end of a playlist.
func (y *YouTubeService) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	var body playlistItemResource
	body.Snippet.PlaylistID = playlistID
	body.Snippet.ResourceID = resourceID{Kind: "youtube#video", VideoID: videoID}

	q := url.Values{"part": {"snippet"}}
	return y.call(ctx, http.MethodPost, "/playlistItems", q, body, nil)
}
