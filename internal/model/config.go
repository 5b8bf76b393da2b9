package model

import "time"

// Config is the complete runtime configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Mongo         MongoConfig         `yaml:"mongo" mapstructure:"mongo"`
	FactCheck     FactCheckConfig     `yaml:"fact_check" mapstructure:"fact_check"`
	Transcription TranscriptionConfig `yaml:"transcription" mapstructure:"transcription"`
	YouTube       YouTubeConfig       `yaml:"youtube" mapstructure:"youtube"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Sources       SourcesConfig       `yaml:"sources" mapstructure:"sources"`
	Authority     AuthorityConfig     `yaml:"authority" mapstructure:"authority"`
	HTTP          HTTPConfig          `yaml:"http" mapstructure:"http"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency" mapstructure:"concurrency"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP/WebSocket listener
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Store           string        `yaml:"store" mapstructure:"store"` // "mongo" or "memory"
}

// MongoConfig points at the document store
type MongoConfig struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Database string        `yaml:"database" mapstructure:"database"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// FactCheckConfig selects and tunes the fact-check provider
type FactCheckConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // perplexity, openai
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxTokens         int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SearchRecency     string        `yaml:"search_recency" mapstructure:"search_recency"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MockDelay         time.Duration `yaml:"mock_delay" mapstructure:"mock_delay"`
}

// TranscriptionConfig configures the speech-to-text API
type TranscriptionConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// YouTubeConfig configures the YouTube helper
type YouTubeConfig struct {
	YtDlpPath        string        `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	OEmbedURL        string        `yaml:"oembed_url" mapstructure:"oembed_url"`
	SegmentDuration  time.Duration `yaml:"segment_duration" mapstructure:"segment_duration"`
	RetryDelay       time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	SentenceThrottle time.Duration `yaml:"sentence_throttle" mapstructure:"sentence_throttle"`
	MetadataTimeout  time.Duration `yaml:"metadata_timeout" mapstructure:"metadata_timeout"`
	TempDir          string        `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	RedisURL        string        `yaml:"redis_url" mapstructure:"redis_url"`
	Dir             string        `yaml:"dir" mapstructure:"dir"`
}

// SourcesConfig controls how citations are post-processed
type SourcesConfig struct {
	MaxSources int           `yaml:"max_sources" mapstructure:"max_sources"`
	Validate   bool          `yaml:"validate" mapstructure:"validate"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Workers    int           `yaml:"workers" mapstructure:"workers"`
}

// AuthorityConfig feeds the source authority classifier
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// PathPattern maps a URL path regex to a tier name
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// HTTPConfig holds outbound HTTP settings shared by clients
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`

	// RetryBackoff is the first delay of FetchWithRetry; later retries double it
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures zap
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8001",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			Store:           "mongo",
		},
		Mongo: MongoConfig{
			URL:      "mongodb://localhost:27017",
			Database: "truthseeker",
			Timeout:  10 * time.Second,
		},
		FactCheck: FactCheckConfig{
			Provider:          "perplexity",
			Model:             "",
			MaxTokens:         1000,
			Temperature:       0.1,
			Timeout:           60 * time.Second,
			SearchRecency:     "month",
			RequestsPerSecond: 1,
			Burst:             1,
			MockDelay:         500 * time.Millisecond,
		},
		Transcription: TranscriptionConfig{
			Model:   "whisper-1",
			Timeout: 5 * time.Minute,
		},
		YouTube: YouTubeConfig{
			YtDlpPath:        "yt-dlp",
			OEmbedURL:        "https://www.youtube.com/oembed",
			SegmentDuration:  30 * time.Second,
			RetryDelay:       10 * time.Second,
			SentenceThrottle: 2 * time.Second,
			MetadataTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
		Sources: SourcesConfig{
			MaxSources: 5,
			Validate:   false,
			Timeout:    10 * time.Second,
			Workers:    5,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gov", "edu", "who.int", "un.org", "europa.eu",
				"nasa.gov", "noaa.gov", "nih.gov", "cdc.gov",
				"doi.org", "pubmed.ncbi.nlm.nih.gov", "nature.com", "science.org",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
				"bbc.co.uk", "bbc.com", "nytimes.com", "theguardian.com",
				"snopes.com", "politifact.com", "factcheck.org", "fullfact.org",
			},
			PathPatterns: []PathPattern{
				{Pattern: `/(press|newsroom|statements?)/`, Tier: "secondary"},
			},
		},
		HTTP: HTTPConfig{
			UserAgent:    "TruthSeeker/1.0 (+https://github.com/SebastienCoste/RealTimeSpeechValidation)",
			RetryBackoff: time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
