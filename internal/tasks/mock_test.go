package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/ytmix/internal/services"
	"github.com/desertthunder/ytmix/internal/shared"
)

type mockDirectory struct {
	mu sync.Mutex

	channels  []string
	subsErr   error
	uploads   map[string]string
	uploadErr map[string]error
	items     map[string][]string
	videos    map[string]services.VideoMetadata
	videosErr error

	createErr  error
	insertErrs map[string]error
	onInsert   func(videoID string)

	uploadLatency time.Duration
	uploadCalls   []time.Time
	videosDone    []time.Time

	subscriptionCalls int
	videoCalls        int
	createdTitles     []string
	createdPrivacy    string
	inserted          []string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		uploads:    map[string]string{},
		uploadErr:  map[string]error{},
		items:      map[string][]string{},
		videos:     map[string]services.VideoMetadata{},
		insertErrs: map[string]error{},
	}
}

func (m *mockDirectory) addVideo(id, title, duration string, published time.Time) {
	m.videos[id] = services.VideoMetadata{ID: id, Title: title, Duration: duration, PublishedAt: published}
}

func (m *mockDirectory) Subscriptions(ctx context.Context, cursor string, pageSize int) (*services.Page[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptionCalls++
	if m.subsErr != nil {
		return nil, m.subsErr
	}
	return &services.Page[string]{Items: m.channels}, nil
}

func (m *mockDirectory) UploadsPlaylist(ctx context.Context, channelID string) (string, error) {
	m.mu.Lock()
	m.uploadCalls = append(m.uploadCalls, time.Now())
	m.mu.Unlock()
	time.Sleep(m.uploadLatency)
	if err := m.uploadErr[channelID]; err != nil {
		return "", err
	}
	id, ok := m.uploads[channelID]
	if !ok {
		return "", fmt.Errorf("%w: channel %s", shared.ErrNoUploads, channelID)
	}
	return id, nil
}

func (m *mockDirectory) PlaylistItems(ctx context.Context, playlistID, cursor string, pageSize int) (*services.Page[string], error) {
	ids := m.items[playlistID]
	if len(ids) > pageSize {
		ids = ids[:pageSize]
	}
	return &services.Page[string]{Items: ids}, nil
}

func (m *mockDirectory) Videos(ctx context.Context, ids []string) ([]services.VideoMetadata, error) {
	m.mu.Lock()
	m.videoCalls++
	m.mu.Unlock()
	if m.videosErr != nil {
		return nil, m.videosErr
	}
	var out []services.VideoMetadata
	for _, id := range ids {
		if v, ok := m.videos[id]; ok {
			out = append(out, v)
		}
	}
	m.mu.Lock()
	m.videosDone = append(m.videosDone, time.Now())
	m.mu.Unlock()
	return out, nil
}

func (m *mockDirectory) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdTitles = append(m.createdTitles, title)
	m.createdPrivacy = privacy
	return "PL-1", nil
}

func (m *mockDirectory) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	if m.onInsert != nil {
		m.onInsert(videoID)
	}
	if ctx.Err() != nil {
		return shared.CancelledError(ctx)
	}
	if err := m.insertErrs[videoID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, videoID)
	return nil
}
