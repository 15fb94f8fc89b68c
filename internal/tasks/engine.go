package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytmix/internal/services"
	"github.com/desertthunder/ytmix/internal/shared"
)

const (
	subscriptionsDescription = "Generated playlist from subscriptions."
	linksDescription         = "Generated playlist from links."
	titleTimeLayout          = "2006-01-02 15:04:05"
)

// ErrRunInProgress is returned when a run is started while another is active.
var ErrRunInProgress = errors.New("a playlist run is already in progress")

// VideoDirectory is the subset of the video API the pipeline drives.
type VideoDirectory interface {
	VideoLookup
	Subscriptions(ctx context.Context, cursor string, pageSize int) (*services.Page[string], error)
	UploadsPlaylist(ctx context.Context, channelID string) (string, error)
	PlaylistItems(ctx context.Context, playlistID, cursor string, pageSize int) (*services.Page[string], error)
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
	InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error
}

// Options tunes an [Engine].
type Options struct {
	PerChannelLimit int
	MaxVideos       int
	PageSize        int
	BatchSize       int
	Admission       Admission
	Privacy         string
	Pacer           *Pacer
	Logger          *log.Logger
	Now             func() time.Time
}

// OptionsFromConfig maps the [generator] config section onto [Options].
func OptionsFromConfig(cfg shared.GeneratorConfig, logger *log.Logger) Options {
	return Options{
		PerChannelLimit: cfg.PerChannelLimit,
		MaxVideos:       cfg.MaxVideos,
		PageSize:        cfg.PageSize,
		BatchSize:       cfg.BatchSize,
		Admission:       Admission{MinSeconds: cfg.MinDurationSeconds, MaxSeconds: cfg.MaxDurationSeconds},
		Privacy:         cfg.PlaylistPrivacy,
		Pacer:           NewPacer(cfg.ChannelDelay(), cfg.ChannelJitter()),
		Logger:          logger,
	}
}

func (o Options) withDefaults() Options {
	if o.PerChannelLimit <= 0 {
		o.PerChannelLimit = 5
	}
	if o.MaxVideos <= 0 {
		o.MaxVideos = 50
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.Admission == (Admission{}) {
		o.Admission = DefaultAdmission
	}
	if o.Privacy == "" {
		o.Privacy = "private"
	}
	if o.Pacer == nil {
		o.Pacer = NewPacer(250*time.Millisecond, 0)
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RunResult is the outcome of a completed run.
//
// VideoCount is the number of qualified videos, including any in Failed.
type RunResult struct {
	PlaylistID string      `json:"playlist_id"`
	Title      string      `json:"title"`
	VideoCount int         `json:"video_count"`
	Videos     []Candidate `json:"videos"`
	Failed     []string    `json:"failed"`
	Skipped    []string    `json:"skipped_channels,omitempty"`
}

// Added is the number of videos appended successfully.
func (r *RunResult) Added() int {
	return r.VideoCount - len(r.Failed)
}

// Snapshot is the observable state of an [Engine].
type Snapshot struct {
	Loading         bool
	Progress        Progress
	FailedVideos    []string
	SkippedChannels []string
}

// Engine runs playlist generation. At most one run is active at a time.
type Engine struct {
	dir       VideoDirectory
	tokens    services.TokenSource
	qualifier *Qualifier
	opts      Options

	failed FailedVideoLog

	mu       sync.Mutex
	loading  bool
	progress Progress
	skipped  []string
	token    *CancelToken
}

// NewEngine creates an [Engine] over dir. tokens is consulted once at run start to fail fast without credentials.
func NewEngine(dir VideoDirectory, tokens services.TokenSource, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		dir:       dir,
		tokens:    tokens,
		qualifier: NewQualifier(dir, opts.Admission, opts.BatchSize),
		opts:      opts,
	}
}

// State returns a snapshot of the current or last run.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Loading:         e.loading,
		Progress:        e.progress,
		FailedVideos:    e.failed.Entries(),
		SkippedChannels: append([]string(nil), e.skipped...),
	}
}

// Cancel cancels the active run. It is a no-op when idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	tok := e.token
	if tok != nil {
		e.progress = Progress{}
	}
	e.mu.Unlock()

	if tok != nil {
		tok.Cancel()
	}
}

// GenerateFromSubscriptions builds a playlist from the most recent qualified uploads of every subscribed channel.
func (e *Engine) GenerateFromSubscriptions(ctx context.Context, title string, progress chan<- ProgressUpdate) (*RunResult, error) {
	tok, logger, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer e.end(tok)

	result, err := e.fromSubscriptions(tok, logger, title, progress)
	return e.finish(tok, logger, result, err, progress)
}

// GenerateFromLinks builds a playlist from pasted video links, keeping their order.
func (e *Engine) GenerateFromLinks(ctx context.Context, links []string, title string, progress chan<- ProgressUpdate) (*RunResult, error) {
	tok, logger, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer e.end(tok)

	result, err := e.fromLinks(tok, logger, links, title, progress)
	return e.finish(tok, logger, result, err, progress)
}

func (e *Engine) begin(ctx context.Context) (*CancelToken, *log.Logger, error) {
	if ctx.Err() != nil {
		return nil, nil, shared.CancelledError(ctx)
	}
	if e.tokens != nil {
		if _, err := e.tokens.AccessToken(ctx); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", shared.ErrAuthRequired, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loading {
		return nil, nil, ErrRunInProgress
	}

	tok := NewCancelToken(ctx)
	e.token = tok
	e.loading = true
	e.progress = Progress{}
	e.skipped = nil
	e.failed.Reset()

	return tok, shared.WithLogger(e.opts.Logger, "run", shared.ShortID()), nil
}

func (e *Engine) end(tok *CancelToken) {
	e.mu.Lock()
	e.loading = false
	if e.token == tok {
		e.token = nil
	}
	e.mu.Unlock()
	tok.Release()
}

// finish classifies the outcome, normalizing anything raised after cancellation to [shared.ErrCancelled].
func (e *Engine) finish(tok *CancelToken, logger *log.Logger, result *RunResult, err error, progress chan<- ProgressUpdate) (*RunResult, error) {
	if err == nil {
		logger.Info("run complete", "playlist", result.PlaylistID, "videos", result.VideoCount, "failed", len(result.Failed))
		return result, nil
	}

	if tok.Cancelled() || shared.IsCancelled(err) {
		logger.Info("run cancelled")
		e.report(progress, cancelledUpdate())
		if cerr := tok.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, shared.ErrCancelled
	}

	logger.Error("run failed", "error", err)
	return nil, err
}

// report records the update as current progress and forwards it without blocking.
func (e *Engine) report(progress chan<- ProgressUpdate, update ProgressUpdate) {
	e.mu.Lock()
	e.progress = Progress{Label: update.Message, Percent: update.Percent}
	e.mu.Unlock()

	sendProgress(progress, update)
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *Engine) fromSubscriptions(tok *CancelToken, logger *log.Logger, title string, progress chan<- ProgressUpdate) (*RunResult, error) {
	ctx := tok.Context()

	e.report(progress, fetchChannelsUpdate())
	channels, err := FetchAll(ctx, e.dir.Subscriptions, FetchOptions{PageSize: e.opts.PageSize})
	if err != nil {
		return nil, stageError("fetch subscriptions", err)
	}
	if len(channels) == 0 {
		return nil, shared.ErrNoChannels
	}
	logger.Info("fetched subscriptions", "channels", len(channels))

	var candidates []Candidate
	for i, channelID := range channels {
		if err := tok.Err(); err != nil {
			return nil, err
		}
		e.report(progress, processChannelUpdate(i+1, len(channels)))

		if err := e.opts.Pacer.Wait(ctx); err != nil {
			return nil, err
		}

		videos, err := e.channelCandidates(ctx, channelID)
		e.opts.Pacer.Done()
		if err != nil {
			if shared.IsCancelled(err) || tok.Cancelled() {
				return nil, err
			}
			logger.Warn("skipping channel", "channel", channelID, "error", err)
			e.skipChannel(channelID)
			continue
		}
		logger.Debug("channel processed", "channel", channelID, "qualified", len(videos))
		candidates = append(candidates, videos...)
	}

	if len(candidates) == 0 {
		return nil, shared.ErrNoVideos
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})
	if len(candidates) > e.opts.MaxVideos {
		candidates = candidates[:e.opts.MaxVideos]
	}

	if title == "" {
		title = e.opts.Now().Format(titleTimeLayout)
	}
	e.report(progress, createPlaylistUpdate(80))
	return e.publish(tok, logger, title, subscriptionsDescription, candidates, progress)
}

func (e *Engine) channelCandidates(ctx context.Context, channelID string) ([]Candidate, error) {
	uploads, err := e.dir.UploadsPlaylist(ctx, channelID)
	if err != nil {
		return nil, err
	}

	items := func(ctx context.Context, cursor string, pageSize int) (*services.Page[string], error) {
		return e.dir.PlaylistItems(ctx, uploads, cursor, pageSize)
	}
	ids, err := FetchAll(ctx, items, FetchOptions{PageSize: e.opts.PageSize, Limit: e.opts.PerChannelLimit})
	if err != nil {
		return nil, err
	}

	return e.qualifier.Qualify(ctx, ids)
}

func (e *Engine) skipChannel(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipped = append(e.skipped, channelID)
}

func (e *Engine) fromLinks(tok *CancelToken, logger *log.Logger, links []string, title string, progress chan<- ProgressUpdate) (*RunResult, error) {
	ctx := tok.Context()

	e.report(progress, extractIDsUpdate())
	ids := ParseVideoLinks(links)
	if len(ids) == 0 {
		return nil, shared.ErrNoValidLinks
	}
	logger.Info("parsed links", "links", len(links), "videos", len(ids))

	e.report(progress, fetchDetailsUpdate(len(ids)))
	candidates, err := e.qualifier.Qualify(ctx, ids)
	if err != nil {
		return nil, stageError("fetch video details", err)
	}
	// No playlist is created when nothing qualifies, same as the subscriptions run.
	if len(candidates) == 0 {
		return nil, shared.ErrNoVideos
	}

	if title == "" {
		title = "Custom Playlist " + e.opts.Now().Format(titleTimeLayout)
	}
	e.report(progress, createPlaylistUpdate(75))
	return e.publish(tok, logger, title, linksDescription, candidates, progress)
}

// publish creates the playlist and appends each candidate in order. Append
// failures are recorded in the failed video log and do not stop the run.
func (e *Engine) publish(tok *CancelToken, logger *log.Logger, title, description string, videos []Candidate, progress chan<- ProgressUpdate) (*RunResult, error) {
	ctx := tok.Context()

	if err := tok.Err(); err != nil {
		return nil, err
	}
	playlistID, err := e.dir.CreatePlaylist(ctx, title, description, e.opts.Privacy)
	if err != nil {
		return nil, stageError("create playlist", err)
	}
	logger.Info("playlist created", "playlist", playlistID, "title", title)

	e.report(progress, addVideosUpdate(len(videos)))
	for _, v := range videos {
		if err := tok.Err(); err != nil {
			return nil, err
		}

		if err := e.dir.InsertPlaylistItem(ctx, playlistID, v.VideoID); err != nil {
			if shared.IsCancelled(err) || tok.Cancelled() {
				return nil, err
			}
			logger.Warn("failed to add video", "video", v.VideoID, "title", v.Title, "error", err)
			e.failed.Add(failedEntry(v))
			continue
		}
		logger.Debug("added video", "video", v.VideoID)
	}

	e.report(progress, completeUpdate(len(videos)))

	e.mu.Lock()
	skipped := append([]string(nil), e.skipped...)
	e.mu.Unlock()

	return &RunResult{
		PlaylistID: playlistID,
		Title:      title,
		VideoCount: len(videos),
		Videos:     videos,
		Failed:     e.failed.Entries(),
		Skipped:    skipped,
	}, nil
}

func failedEntry(v Candidate) string {
	if v.Title != "" {
		return v.Title
	}
	return v.VideoID
}

func stageError(stage string, err error) error {
	if shared.IsCancelled(err) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", stage, err)
}
