package types

// Config represents the overall application configuration
type Config struct {
	Output  OutputConfig  `yaml:"output" json:"output"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Filter  FilterConfig  `yaml:"filter" json:"filter"`
	Render  RenderConfig  `yaml:"render" json:"render"`
	Tags    TagsConfig    `yaml:"tags" json:"tags"`
}

// OutputConfig holds output naming and packaging settings
type OutputConfig struct {
	Dir     string   `yaml:"dir" json:"dir" env:"E2A_OUTPUT_DIR"`                // Default: <epub stem>_audio
	SplitOn []string `yaml:"split_on" json:"split_on"`                           // Heading tags to split chapters on, e.g. [h1, h2]
	Bundle  bool     `yaml:"bundle" json:"bundle" env:"E2A_OUTPUT_BUNDLE"`       // Also write a zip bundle with a manifest
	Format  string   `yaml:"format" json:"format" env:"E2A_OUTPUT_FORMAT"`       // Audio file extension, "mp3"
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string           `yaml:"adapter" json:"adapter" env:"E2A_STORAGE_ADAPTER"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local" json:"local"`
	S3      S3StorageOpts    `yaml:"s3" json:"s3"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path" json:"base_path" env:"E2A_STORAGE_LOCAL_BASE_PATH"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint" env:"E2A_STORAGE_S3_ENDPOINT"`
	Region          string `yaml:"region" json:"region" env:"E2A_STORAGE_S3_REGION"`
	Bucket          string `yaml:"bucket" json:"bucket" env:"E2A_STORAGE_S3_BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" env:"E2A_STORAGE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" env:"E2A_STORAGE_S3_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl" env:"E2A_STORAGE_S3_USE_SSL"`
}

// EngineConfig selects and configures the speech engine
type EngineConfig struct {
	Name string     `yaml:"name" json:"name" env:"E2A_ENGINE"` // "gtts" or "edge"
	GTTS GTTSConfig `yaml:"gtts" json:"gtts"`
	Edge EdgeConfig `yaml:"edge" json:"edge"`
}

// GTTSConfig configures the Google Translate speech engine
type GTTSConfig struct {
	Language          string `yaml:"language" json:"language" env:"E2A_GTTS_LANGUAGE"` // e.g. en, en-uk, es, de
	TLD               string `yaml:"tld" json:"tld" env:"E2A_GTTS_TLD"`                // Accent domain: com, co.uk, com.au, co.in
	Slow              bool   `yaml:"slow" json:"slow" env:"E2A_GTTS_SLOW"`
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute" env:"E2A_GTTS_REQUESTS_PER_MINUTE"`
}

// EdgeConfig configures the Edge read-aloud speech engine
type EdgeConfig struct {
	Voice  string `yaml:"voice" json:"voice" env:"E2A_EDGE_VOICE"`    // e.g. en-US-BrianNeural
	Rate   string `yaml:"rate" json:"rate" env:"E2A_EDGE_RATE"`       // Signed percent, e.g. +0%
	Volume string `yaml:"volume" json:"volume" env:"E2A_EDGE_VOLUME"` // Signed percent, e.g. +0%
	Pitch  string `yaml:"pitch" json:"pitch" env:"E2A_EDGE_PITCH"`    // Signed Hz or percent, e.g. +0Hz
}

// FilterConfig holds chapter selection settings
type FilterConfig struct {
	MinChapterChars int `yaml:"min_chapter_chars" json:"min_chapter_chars" env:"E2A_MIN_CHAPTER_CHARS"` // Skip chapters shorter than this
	Start           int `yaml:"start" json:"start"`                                                     // 0-based start index after length filtering
	Limit           int `yaml:"limit" json:"limit"`                                                     // Max chapters to render, 0 = all
}

// RenderConfig holds synthesis pipeline settings
type RenderConfig struct {
	Jobs          int `yaml:"jobs" json:"jobs" env:"E2A_RENDER_JOBS"`                   // Concurrent synthesis workers
	Retries       int `yaml:"retries" json:"retries" env:"E2A_RENDER_RETRIES"`          // Attempts per chapter
	RetryWaitSecs int `yaml:"retry_wait_secs" json:"retry_wait_secs" env:"E2A_RENDER_RETRY_WAIT_SECS"` // Backoff base, doubled per attempt
}

// TagsConfig holds ID3 tag defaults
type TagsConfig struct {
	Album  string `yaml:"album" json:"album" env:"E2A_TAGS_ALBUM"`    // Default: EPUB title or filename
	Artist string `yaml:"artist" json:"artist" env:"E2A_TAGS_ARTIST"` // Default: "Unknown"
}
