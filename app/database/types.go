package database

// EstablishmentRecord is the write-side view of an establishment. Empty
// fields are treated as absent on upsert and never overwrite stored values.
type EstablishmentRecord struct {
	ExternalID  string
	Name        string
	Address     string
	Phone       string
	Rating      float64
	ReviewCount int
	Lat         *float64
	Lng         *float64
}

// ItemRecord is the write-side view of an extracted item.
type ItemRecord struct {
	Kind        string
	Position    int
	Name        string
	Description string
	PriceMinor  int64
	Currency    string
	Category    string
	ImageURL    string
	SourceURL   string
	Width       int
	Height      int
	IsEnhanced  bool
}

// OutcomeRecord is the write-side view of a run outcome row.
type OutcomeRecord struct {
	Input        string
	Status       string
	ItemsWritten int
	Error        string
}

// Outcome status values. The first three are terminal successes: resume
// skips inputs that already carry one of them. persist_error and failed are
// re-attempted on resume.
const (
	StatusMatched         = "matched"
	StatusNotFound        = "not_found"
	StatusExtractionEmpty = "extraction_empty"
	StatusPersistError    = "persist_error"
	StatusFailed          = "failed"
)

// IsTerminalSuccess reports whether a status completes an input for resume
// purposes.
func IsTerminalSuccess(status string) bool {
	switch status {
	case StatusMatched, StatusNotFound, StatusExtractionEmpty:
		return true
	default:
		return false
	}
}

// OutcomeStats aggregates outcome rows for the stats endpoint.
type OutcomeStats struct {
	Total        int
	Matched      int
	NotFound     int
	Failed       int
	ItemsWritten int
}
