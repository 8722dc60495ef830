package runner

// Summary aggregates the per-input outcomes of one run.
type Summary struct {
	Run          string `json:"run"`
	Total        int    `json:"total"`
	Matched      int    `json:"matched"`
	NotFound     int    `json:"not_found"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	ItemsWritten int    `json:"items_written"`
}

// Request asks the manager to execute a run in the background.
type Request struct {
	RunName string
	Resume  bool
}
