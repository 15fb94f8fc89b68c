package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytmix/internal/services"
	"github.com/desertthunder/ytmix/internal/shared"
)

// Admission is the duration window, in seconds, a video must fall in: Min < d <= Max.
type Admission struct {
	MinSeconds int
	MaxSeconds int
}

// DefaultAdmission admits videos longer than one minute and at most twenty.
var DefaultAdmission = Admission{MinSeconds: 60, MaxSeconds: 1200}

// Admits reports whether a video of the given length qualifies.
func (a Admission) Admits(seconds int) bool {
	return seconds > a.MinSeconds && seconds <= a.MaxSeconds
}

// Candidate is a qualified video.
type Candidate struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	ChannelTitle    string    `json:"channel_title"`
	PublishedAt     time.Time `json:"published_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// VideoLookup fetches metadata for one batch of IDs.
type VideoLookup interface {
	Videos(ctx context.Context, ids []string) ([]services.VideoMetadata, error)
}

// Qualifier batches IDs through a [VideoLookup] and keeps admitted videos.
type Qualifier struct {
	videos    VideoLookup
	admission Admission
	batchSize int
}

// NewQualifier creates a [Qualifier]. batchSize is clamped to the API limit.
func NewQualifier(videos VideoLookup, admission Admission, batchSize int) *Qualifier {
	if batchSize <= 0 || batchSize > services.MaxBatchSize {
		batchSize = services.MaxBatchSize
	}
	return &Qualifier{videos: videos, admission: admission, batchSize: batchSize}
}

// Qualify returns admitted candidates in batch order. Rejected IDs are dropped silently.
func (q *Qualifier) Qualify(ctx context.Context, ids []string) ([]Candidate, error) {
	var admitted []Candidate
	for start := 0; start < len(ids); start += q.batchSize {
		if ctx.Err() != nil {
			return nil, shared.CancelledError(ctx)
		}

		batch := ids[start:min(start+q.batchSize, len(ids))]
		videos, err := q.videos.Videos(ctx, batch)
		if err != nil {
			if shared.IsCancelled(err) {
				return nil, err
			}
			return nil, fmt.Errorf("video batch %d: %w", start/q.batchSize+1, err)
		}

		for _, v := range videos {
			seconds := shared.ParseDuration(v.Duration)
			if !q.admission.Admits(seconds) {
				continue
			}
			admitted = append(admitted, Candidate{
				VideoID:         v.ID,
				Title:           v.Title,
				ChannelTitle:    v.ChannelTitle,
				PublishedAt:     v.PublishedAt,
				DurationSeconds: seconds,
			})
		}
	}
	return admitted, nil
}
