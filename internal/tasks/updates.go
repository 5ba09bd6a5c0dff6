package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ListCatalogue Phase = iota
	FetchDetails
	WriteExport
)

func (p Phase) String() string {
	switch p {
	case ListCatalogue:
		return "list_catalogue"
	case FetchDetails:
		return "fetch_details"
	case WriteExport:
		return "write_export"
	default:
		return ""
	}
}

func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func listPageUpdate(page, pages int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListCatalogue,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("Listing catalogue page %d...", page),
	}
}

func fetchingDetailsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d movie details...", total),
	}
}

func detailFetchedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title),
	}
}

func detailFailedUpdate(step, total int, id int64, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDetails,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ movie %d: %v", step, total, id, err),
	}
}
