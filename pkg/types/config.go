package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "corpus-engine/0.1"). Per prd001-discovery R5.2, prd003-fetching R5.1.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds transport-level retries for GET and HEAD requests
	// on transient failures (default 3). Per prd003-fetching R5.3.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryWaitMin and RetryWaitMax bound the exponential backoff between
	// retry attempts (defaults 500ms and 8s).
	RetryWaitMin time.Duration `json:"retry_wait_min" yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `json:"retry_wait_max" yaml:"retry_wait_max"`

	// InsecureSkipVerify disables TLS certificate verification for
	// environments with broken trust chains. Defaults to false (verified).
	// Per prd003-fetching R5.4.
	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// DiscoveryConfig holds settings for the discovery stage.
// Per prd001-discovery R5.1-R5.4.
type DiscoveryConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mailto is the courtesy contact identifier passed to the bibliographic
	// API; recommended but optional.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// APIKey is an optional premium API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PageDelay spaces consecutive page requests (default 350ms). The delay
	// is enforced by a rate limiter shared with the enrichment lookups.
	PageDelay time.Duration `json:"page_delay" yaml:"page_delay"`
}

// ResolveConfig holds settings for location resolution and enrichment.
// Per prd002-resolution R3.1-R3.4.
type ResolveConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is the contact identifier required by the enrichment API;
	// enrichment is skipped silently when empty (R3.2).
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// PreferBest controls whether the enricher's best entry outranks every
	// candidate except the primary source's own best entry (R3.4).
	PreferBest bool `json:"prefer_best" yaml:"prefer_best"`
}

// FetchConfig holds settings for the fetch stage.
// Per prd003-fetching R5.1-R5.5.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// CorpusDir is the base directory for the corpus (contains raw/, text/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// HeadCheck enables the content-type probe before PDF downloads
	// (default true). An unavailable or ambiguous type never blocks the
	// download attempt (R2.2).
	HeadCheck bool `json:"head_check" yaml:"head_check"`
}

// ExtractionConfig holds settings for the text extraction stage.
// Per prd005-extraction R1.2, R2.3.
type ExtractionConfig struct {
	// CorpusDir is the base directory for the corpus (contains raw/, text/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// MaxPDFPages caps the number of PDF pages read; zero reads all pages.
	MaxPDFPages int `json:"max_pdf_pages" yaml:"max_pdf_pages"`
}

// ScoringConfig holds settings for keyword relevance scoring.
// Per prd006-scoring R1.1-R1.5.
type ScoringConfig struct {
	// Keywords are the scoring terms; normalized to lowercase, deduplicated.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// TitleWeight, AbstractWeight, and TextWeight weight keyword hits per
	// field (defaults 3, 2, 1).
	TitleWeight    float64 `json:"w_title" yaml:"w_title"`
	AbstractWeight float64 `json:"w_abstract" yaml:"w_abstract"`
	TextWeight     float64 `json:"w_text" yaml:"w_text"`

	// Alpha controls the 1-exp(-raw/alpha) squash to [0,1) (default 6).
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// MinChars and QualityBonusCap shape the extracted-text length bonus
	// (defaults 800 and 0.25).
	MinChars        int     `json:"min_chars" yaml:"min_chars"`
	QualityBonusCap float64 `json:"quality_bonus_cap" yaml:"quality_bonus_cap"`

	// MaxTextChars caps how much extracted text is read for scoring
	// (default 200000).
	MaxTextChars int `json:"max_text_chars" yaml:"max_text_chars"`

	// KeepThreshold marks records with score at or above it as kept
	// (default 0.5).
	KeepThreshold float64 `json:"keep_threshold" yaml:"keep_threshold"`
}

// ExportFormat selects the export file format.
// Per prd007-export R2.1.
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportJSONL ExportFormat = "jsonl"
	ExportYAML  ExportFormat = "yaml"
)

// ExportConfig holds settings for the export stage.
// Per prd007-export R1.1-R1.4.
type ExportConfig struct {
	// OutputDir is the directory for export files (e.g. "output/export").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Format selects the export format: csv, jsonl, or yaml.
	Format ExportFormat `json:"format" yaml:"format"`

	// KeptOnly exports only records marked kept by scoring.
	KeptOnly bool `json:"kept_only" yaml:"kept_only"`

	// WithFilesOnly exports only records with a fetched artifact.
	WithFilesOnly bool `json:"with_files_only" yaml:"with_files_only"`
}

// StorageConfig holds corpus store settings.
// Per prd004-corpus-store R1.1.
type StorageConfig struct {
	// CorpusDir is the base directory for the corpus (contains raw/, text/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`
}

// RuntimeConfig holds concurrency settings for pipeline runs.
// Per prd008-pipeline R1.1-R1.3.
type RuntimeConfig struct {
	// Workers is the number of concurrent fetch workers (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// QueueSize bounds the discovery-to-fetch queue in harvest mode
	// (default 2 x Workers); a full queue applies backpressure to discovery.
	QueueSize int `json:"queue_size" yaml:"queue_size"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Discovery  DiscoveryConfig  `json:"discovery" yaml:"discovery"`
	Resolve    ResolveConfig    `json:"resolve" yaml:"resolve"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Scoring    ScoringConfig    `json:"scoring" yaml:"scoring"`
	Export     ExportConfig     `json:"export" yaml:"export"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Runtime    RuntimeConfig    `json:"runtime" yaml:"runtime"`
}
