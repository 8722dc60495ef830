package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	RunsDir      string
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Provider configuration
	PlacesAPIURL string
	PlacesAPIKey string
	MenuAPIURL   string
	MenuAPIKey   string

	// Pipeline configuration
	BatchSize           int
	SimilarityThreshold float64
	MaxRetries          int
	RetryDelaySec       int
	RequestIntervalMs   int
	MaxPhotos           int

	// Duplicate detection thresholds
	DedupNameThreshold      float64
	DedupAddressThreshold   float64
	DedupExactAddrThreshold float64

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
