package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema constrains every field. Durations are checked in milliseconds.
const schema = `
#Config: {
	api_base_url:           =~"^https?://[^/]+"
	api_token:              string
	storage_path:           string & != ""
	offline_queue:          bool
	settle_delay_ms:        int & >=0 & <=60000
	cache_ttl_ms:           int & >0
	tracker_cache_ttl_ms:   int & >0
	tracker_cache_capacity: int & >=1 & <=1000
	max_retries:            int & >=1 & <=100
	request_timeout_ms:     int & >0
	probe_interval_ms:      int & >=0
	log_level:              "debug" | "info" | "warn" | "error"
}
`

// Validate checks the configuration against the schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	doc := ctx.Encode(map[string]any{
		"api_base_url":           c.APIBaseURL,
		"api_token":              c.APIToken,
		"storage_path":           c.StoragePath,
		"offline_queue":          c.OfflineQueue,
		"settle_delay_ms":        c.SettleDelay.Milliseconds(),
		"cache_ttl_ms":           c.CacheTTL.Milliseconds(),
		"tracker_cache_ttl_ms":   c.TrackerCacheTTL.Milliseconds(),
		"tracker_cache_capacity": c.TrackerCacheCapacity,
		"max_retries":            c.MaxRetries,
		"request_timeout_ms":     c.RequestTimeout.Milliseconds(),
		"probe_interval_ms":      c.ProbeInterval.Milliseconds(),
		"log_level":              c.LogLevel,
	})
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
