package tasks

import (
	"fmt"
	"math"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline stage
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Percent int    // Overall completion, 0-100
	Message string // Human-readable stage label
}

// Operation phase enumeration
type Phase int

const (
	FetchChannels Phase = iota
	ProcessChannels
	ExtractIDs
	FetchDetails
	CreatePlaylist
	AddVideos
	Complete
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case FetchChannels:
		return "fetch_channels"
	case ProcessChannels:
		return "process_channels"
	case ExtractIDs:
		return "extract_ids"
	case FetchDetails:
		return "fetch_details"
	case CreatePlaylist:
		return "create_playlist"
	case AddVideos:
		return "add_videos"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Progress is the label and percentage last reported by a run.
type Progress struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

func (p Progress) String() string {
	if p.Label == "" {
		return ""
	}
	return fmt.Sprintf("%s (%d%%)", p.Label, p.Percent)
}

func percent(step, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(step) / float64(total) * 100))
}

func fetchChannelsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchChannels, Percent: 0, Message: "Fetching subscribed channels"}
}

func processChannelUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProcessChannels,
		Step:    step,
		Total:   total,
		Percent: percent(step, total),
		Message: "Processing channels",
	}
}

func extractIDsUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ExtractIDs, Percent: 0, Message: "Extracting video IDs"}
}

func fetchDetailsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchDetails, Total: total, Percent: 25, Message: "Fetching video details"}
}

func createPlaylistUpdate(pct int) ProgressUpdate {
	return ProgressUpdate{Phase: CreatePlaylist, Percent: pct, Message: "Creating playlist"}
}

func addVideosUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: AddVideos, Total: total, Percent: 90, Message: "Adding videos"}
}

func completeUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: Complete, Step: total, Total: total, Percent: 100, Message: "Complete"}
}

func cancelledUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: Cancelled, Percent: 0, Message: "Cancelled"}
}
