package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-extractor/internal/secrets"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// setConfigDefaults registers PipelineConfig keys with viper so that config
// files and EVIDENCE_EXTRACTOR_* variables can override them. The user agent
// and mailto have no default so that secrets can fill them.
func setConfigDefaults(v *viper.Viper, d types.PipelineConfig) {
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)
	v.SetDefault("fetch.max_redirects", d.Fetch.MaxRedirects)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)

	v.SetDefault("reader.max_pages", d.Reader.MaxPages)

	v.SetDefault("mining.min_sample_size", d.Mining.MinSampleSize)
	v.SetDefault("mining.max_sample_size", d.Mining.MaxSampleSize)
	v.SetDefault("mining.confidence_threshold", d.Mining.ConfidenceThreshold)

	v.SetDefault("extraction.workers", d.Extraction.Workers)
	v.SetDefault("extraction.timeout_ms", d.Extraction.TimeoutMS)
	v.SetDefault("extraction.discover", d.Extraction.Discover)

	v.SetDefault("store.evidence_dir", d.Store.EvidenceDir)
	v.SetDefault("store.max_results", d.Store.MaxResults)
}

// pipelineConfig reads the layered configuration. The user agent and the
// OpenAlex contact come from config when set, else from secrets.
func pipelineConfig(v *viper.Viper, s secrets.Secrets) types.PipelineConfig {
	var cfg types.PipelineConfig

	cfg.Fetch.Timeout = v.GetDuration("fetch.timeout")
	cfg.Fetch.UserAgent = s.Get(secrets.UserAgent, v.GetString("fetch.user_agent"))
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = types.DefaultUserAgent
	}
	cfg.Fetch.MaxBytes = v.GetInt64("fetch.max_bytes")
	cfg.Fetch.MaxRedirects = v.GetInt("fetch.max_redirects")
	cfg.Fetch.MaxRetries = v.GetInt("fetch.max_retries")
	cfg.Fetch.Mailto = s.Get(secrets.OpenAlexEmail, v.GetString("fetch.mailto"))

	cfg.Reader.MaxPages = v.GetInt("reader.max_pages")

	cfg.Mining.MinSampleSize = v.GetInt("mining.min_sample_size")
	cfg.Mining.MaxSampleSize = v.GetInt("mining.max_sample_size")
	cfg.Mining.ConfidenceThreshold = v.GetFloat64("mining.confidence_threshold")

	cfg.Extraction.Workers = v.GetInt("extraction.workers")
	cfg.Extraction.TimeoutMS = v.GetInt("extraction.timeout_ms")
	cfg.Extraction.Discover = v.GetBool("extraction.discover")

	cfg.Store.EvidenceDir = v.GetString("store.evidence_dir")
	cfg.Store.MaxResults = v.GetInt("store.max_results")

	return cfg
}
