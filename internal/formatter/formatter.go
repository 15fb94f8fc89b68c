// Package formatter renders the outcome of a playlist generation run as a
// styled terminal report or as JSON, CSV, Markdown or plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytmix/internal/shared"
	"github.com/desertthunder/ytmix/internal/tasks"
)

const (
	watchURL    = "https://www.youtube.com/watch?v="
	playlistURL = "https://www.youtube.com/playlist?list="
)

// Format names an export encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user supplied name onto a [Format].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
}

// VideoURL returns the watch page of a video.
func VideoURL(id string) string { return watchURL + id }

// PlaylistURL returns the public page of a playlist.
func PlaylistURL(id string) string { return playlistURL + id }

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// row is one video of the run with its append outcome.
type row struct {
	pos    int
	video  tasks.Candidate
	failed bool
}

// rows pairs each video with the failed log. Entries are titles (or IDs when
// untitled), so duplicates are consumed one at a time.
func rows(result *tasks.RunResult) []row {
	pending := make(map[string]int, len(result.Failed))
	for _, f := range result.Failed {
		pending[f]++
	}

	out := make([]row, 0, len(result.Videos))
	for i, v := range result.Videos {
		key := v.Title
		if key == "" {
			key = v.VideoID
		}
		failed := pending[key] > 0
		if failed {
			pending[key]--
		}
		out = append(out, row{pos: i + 1, video: v, failed: failed})
	}
	return out
}

func status(failed bool) string {
	if failed {
		return "failed"
	}
	return "added"
}

// ExportToJSON encodes the run result.
func ExportToJSON(result *tasks.RunResult, pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV writes one record per video with columns: Position, VideoID,
// Title, Channel, Duration, PublishedAt, URL, Status
func ExportToCSV(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "VideoID", "Title", "Channel", "Duration", "PublishedAt", "URL", "Status"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range rows(result) {
		published := ""
		if !r.video.PublishedAt.IsZero() {
			published = r.video.PublishedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(r.pos),
			r.video.VideoID,
			r.video.Title,
			r.video.ChannelTitle,
			strconv.Itoa(r.video.DurationSeconds),
			published,
			VideoURL(r.video.VideoID),
			status(r.failed),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the playlist as a Markdown document with linked videos.
func ExportToMarkdown(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", result.Title)
	fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", result.PlaylistID, PlaylistURL(result.PlaylistID))
	fmt.Fprintf(&buf, "**Videos**: %d added, %d failed\n\n", result.Added(), len(result.Failed))

	buf.WriteString("## Videos\n\n")
	for _, r := range rows(result) {
		suffix := ""
		if r.failed {
			suffix = " _(failed)_"
		}
		fmt.Fprintf(&buf, "%d. [%s](%s) - %s [%s]%s\n", r.pos, r.video.Title, VideoURL(r.video.VideoID),
			r.video.ChannelTitle, FormatDuration(r.video.DurationSeconds), suffix)
	}

	if len(result.Skipped) > 0 {
		buf.WriteString("\n## Skipped channels\n\n")
		for _, ch := range result.Skipped {
			fmt.Fprintf(&buf, "- %s\n", ch)
		}
	}
	return buf.Bytes(), nil
}

// ExportToText renders an unstyled listing.
func ExportToText(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, result, PlainPalette()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export encodes result in the given format.
func Export(result *tasks.RunResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(result, true)
	case FormatCSV:
		return ExportToCSV(result)
	case FormatMarkdown:
		return ExportToMarkdown(result)
	case FormatText:
		return ExportToText(result)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// WriteExport encodes result and writes it to path.
func WriteExport(result *tasks.RunResult, format Format, path string) error {
	data, err := Export(result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}

// WriteReport prints the run summary styled with p.
func WriteReport(w io.Writer, result *tasks.RunResult, p *Palette) error {
	if p == nil {
		p = DefaultPalette
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.Title(result.Title))
	fmt.Fprintf(&b, "%s %s\n", p.OK("✓ Playlist created:"), PlaylistURL(result.PlaylistID))
	fmt.Fprintf(&b, "%s\n\n", p.Help(fmt.Sprintf("%d of %d videos added", result.Added(), result.VideoCount)))

	for _, r := range rows(result) {
		line := fmt.Sprintf("%2d. %s - %s [%s]", r.pos, r.video.Title, r.video.ChannelTitle,
			FormatDuration(r.video.DurationSeconds))
		if r.failed {
			line = p.Err("✗ " + line)
		} else {
			line = "  " + line
		}
		fmt.Fprintln(&b, line)
	}

	if len(result.Failed) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.Warn(fmt.Sprintf("⚠ %d videos could not be added:", len(result.Failed))))
		for _, f := range result.Failed {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.Warn(fmt.Sprintf("⚠ %d channels skipped:", len(result.Skipped))))
		for _, ch := range result.Skipped {
			fmt.Fprintf(&b, "  - %s\n", ch)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
