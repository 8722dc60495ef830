package config

// RunConfig describes one reconciliation run: the venue names to process
// and the per-run overrides for matching and extraction. The run name is
// derived from the config filename and doubles as the resume key.
type RunConfig struct {
	Name     string      `yaml:"-"`
	Region   string      `yaml:"region"`
	Venues   []string    `yaml:"venues"`
	Settings RunSettings `yaml:"settings"`
}

// RunSettings contains per-run overrides. Zero values fall back to the
// service-wide defaults at load time.
type RunSettings struct {
	Enabled             bool     `yaml:"enabled"`
	Resume              bool     `yaml:"resume"`
	BatchSize           int      `yaml:"batch_size"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	MaxPhotos           int      `yaml:"max_photos"`
	ExtraStopWords      []string `yaml:"extra_stop_words"`
}
