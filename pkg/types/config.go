package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the upper bound on any single HTTP exchange. Per-paper
	// fetch deadlines derived from the batch timeout are always shorter.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-extractor/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the safe document fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxBytes caps the document body size (default 15 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`

	// MaxRedirects caps the number of redirects followed (default 10).
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`

	// MaxRetries is the number of HTTP 429 retries inside the fetch
	// deadline. Zero disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Mailto is sent to OpenAlex during PDF discovery for the polite pool.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`
}

// ReaderConfig holds settings for PDF text extraction.
type ReaderConfig struct {
	// MaxPages bounds how many leading pages are read (default 25).
	MaxPages int `json:"max_pages" yaml:"max_pages"`
}

// MiningConfig holds the calibration constants of the field and outcome miners.
type MiningConfig struct {
	// MinSampleSize and MaxSampleSize bound a plausible sample size
	// (default 2 and 10,000,000).
	MinSampleSize int `json:"min_sample_size" yaml:"min_sample_size"`
	MaxSampleSize int `json:"max_sample_size" yaml:"max_sample_size"`

	// ConfidenceThreshold filters candidate outcomes (default 0.35). When no
	// candidate reaches it the single best candidate is kept, and when there
	// are no candidates an outcome is synthesized from the first sentence.
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// ExtractionConfig holds settings for the extraction orchestrator.
type ExtractionConfig struct {
	// Workers bounds how many papers are extracted concurrently (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// TimeoutMS is the batch timeout used when a request does not set one.
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`

	// Discover enables PDF URL discovery (OpenAlex, landing page) for
	// papers that arrive without a pdf_url.
	Discover bool `json:"discover" yaml:"discover"`
}

// StoreConfig holds settings for the evidence store.
type StoreConfig struct {
	// EvidenceDir is the base directory for the store (contains index/).
	EvidenceDir string `json:"evidence_dir" yaml:"evidence_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Reader     ReaderConfig     `json:"reader" yaml:"reader"`
	Mining     MiningConfig     `json:"mining" yaml:"mining"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Store      StoreConfig      `json:"store" yaml:"store"`
}

// Default calibration constants.
const (
	DefaultMaxBytes            = 15 * 1024 * 1024
	DefaultMaxRedirects        = 10
	DefaultMaxRetries          = 2
	DefaultMaxPages            = 25
	DefaultMinSampleSize       = 2
	DefaultMaxSampleSize       = 10_000_000
	DefaultConfidenceThreshold = 0.35
	DefaultWorkers             = 4
	DefaultUserAgent           = "evidence-extractor/0.1"
)

// DefaultPipelineConfig returns a PipelineConfig populated with the
// default calibration constants.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   time.Duration(MaxTimeoutMS) * time.Millisecond,
				UserAgent: DefaultUserAgent,
			},
			MaxBytes:     DefaultMaxBytes,
			MaxRedirects: DefaultMaxRedirects,
			MaxRetries:   DefaultMaxRetries,
		},
		Reader: ReaderConfig{MaxPages: DefaultMaxPages},
		Mining: MiningConfig{
			MinSampleSize:       DefaultMinSampleSize,
			MaxSampleSize:       DefaultMaxSampleSize,
			ConfidenceThreshold: DefaultConfidenceThreshold,
		},
		Extraction: ExtractionConfig{
			Workers:   DefaultWorkers,
			TimeoutMS: DefaultTimeoutMS,
		},
		Store: StoreConfig{
			EvidenceDir: "evidence",
			MaxResults:  20,
		},
	}
}
