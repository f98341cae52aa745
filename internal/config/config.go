// Package config defines the canonical, JSON-serializable configuration model
// for the tap. It is intentionally small, explicit, and dependency-free so
// that configurations can be loaded from disk (or other sources) and passed
// through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure of the tap config
//     file handed to the binary via -config.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library.
//
// Example (trimmed):
//
//	{
//	  "bucket":     "acme-exports",
//	  "start_date": "2023-01-01T00:00:00Z",
//	  "set_empty_values_null": true,
//	  "tables": [
//	    { "table_name": "users", "search_prefix": "exports/users/",
//	      "search_pattern": "\\.csv$", "key_properties": ["id"] }
//	  ],
//	  "sink": { "kind": "singer" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level tap configuration. It is loaded once at process
// start and treated as read-only afterwards.
type Config struct {
	// Bucket is the S3 bucket (or root directory for the file bucket kind)
	// that holds the source files.
	Bucket string `json:"bucket"`

	// BucketKind selects the discovery/fetch implementation: "s3" (default)
	// or "file" for a local directory tree.
	BucketKind string `json:"bucket_kind,omitempty"`

	// Region is the AWS region for the S3 bucket kind.
	Region string `json:"region,omitempty"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores
	// (MinIO, localstack). ForcePathStyle is usually required with it.
	Endpoint       string `json:"endpoint,omitempty"`
	ForcePathStyle bool   `json:"force_path_style,omitempty"`

	// AccessKeyID/SecretAccessKey optionally pin static credentials; when
	// empty the SDK's default chain (env, profile, role) is used.
	AccessKeyID     string `json:"aws_access_key_id,omitempty"`
	SecretAccessKey string `json:"aws_secret_access_key,omitempty"`

	// StartDate is the global fallback watermark (RFC 3339). Tables without
	// a modified_since bookmark start here.
	StartDate string `json:"start_date"`

	// TableSuffix is appended to every table name on output, e.g. "_raw".
	TableSuffix string `json:"table_suffix,omitempty"`

	// SetEmptyValuesNull rewrites blank cells to null before transformation,
	// so output matches what database-backed sources produce.
	SetEmptyValuesNull bool `json:"set_empty_values_null,omitempty"`

	// Tables lists the per-table file-selection specs.
	Tables []TableSpec `json:"tables"`

	// Sink selects and configures the output destination.
	Sink SinkConfig `json:"sink"`
}

// TableSpec describes one logical table's source file-selection rules. It is
// immutable for the duration of a sync.
type TableSpec struct {
	// TableName is the base name; Config.TableSuffix is appended on output.
	TableName string `json:"table_name"`

	// SearchPrefix narrows the listing to keys under this prefix.
	SearchPrefix string `json:"search_prefix,omitempty"`

	// SearchPattern is a regular expression matched against the full key.
	SearchPattern string `json:"search_pattern"`

	// KeyProperties are the primary-key field names for the stream.
	KeyProperties []string `json:"key_properties,omitempty"`

	// Delimiter is the field separator; "," when empty. Only the first rune
	// is used.
	Delimiter string `json:"delimiter,omitempty"`

	// Encoding names the file's text encoding ("utf-8" default; "latin1",
	// "windows-1250", "windows-1252" are also recognized).
	Encoding string `json:"encoding,omitempty"`

	// DateOverrides lists fields to coerce as date-time regardless of the
	// declared schema type.
	DateOverrides []string `json:"date_overrides,omitempty"`
}

// SinkConfig selects the record/state destination.
type SinkConfig struct {
	// Kind selects the sink implementation: "singer" (default), "postgres",
	// or "sqlite".
	Kind string `json:"kind,omitempty"`

	// DSN is the connection string for database sink kinds.
	DSN string `json:"dsn,omitempty"`

	// Table is the landing table for database sink kinds; defaults to
	// "s3tap_records".
	Table string `json:"table,omitempty"`
}

// Load reads and decodes the configuration file at path. It does not
// validate; call Validate for that.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// StartDateTime parses StartDate as RFC 3339 into a timezone-aware time.
func (c *Config) StartDateTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("start_date %q: %w", c.StartDate, err)
	}
	return t, nil
}

// TableFor returns the spec for the named base table, if configured.
func (c *Config) TableFor(name string) (TableSpec, bool) {
	for _, t := range c.Tables {
		if t.TableName == name {
			return t, true
		}
	}
	return TableSpec{}, false
}

// Pattern compiles SearchPattern. An empty pattern matches every key.
func (t TableSpec) Pattern() (*regexp.Regexp, error) {
	if t.SearchPattern == "" {
		return regexp.MustCompile(""), nil
	}
	re, err := regexp.Compile(t.SearchPattern)
	if err != nil {
		return nil, fmt.Errorf("search_pattern %q: %w", t.SearchPattern, err)
	}
	return re, nil
}

// DelimiterRune returns the first rune of Delimiter, or ',' when unset.
func (t TableSpec) DelimiterRune() rune {
	if t.Delimiter == "" {
		return ','
	}
	for _, r := range t.Delimiter {
		return r
	}
	return ','
}
