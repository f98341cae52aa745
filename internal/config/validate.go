// Package config provides the tap configuration model and helpers.
//
// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "sink.kind",
// "tables[1].search_pattern"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// knownEncodings mirrors the names the CSV iterator understands.
var knownEncodings = map[string]struct{}{
	"": {}, "utf-8": {}, "utf8": {},
	"latin1": {}, "iso-8859-1": {},
	"windows-1250": {}, "windows-1252": {},
}

// knownSinkKinds mirrors the registered sink backends.
var knownSinkKinds = map[string]struct{}{
	"": {}, "singer": {}, "postgres": {}, "sqlite": {},
}

// Validate performs static validation / linting of a Config.
//
// It does not mutate the config. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func Validate(c *Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Bucket) == "" {
		issues = append(issues, Issue{SeverityError, "bucket", "bucket must not be empty"})
	}
	switch c.BucketKind {
	case "", "s3", "file":
	default:
		issues = append(issues, Issue{SeverityError, "bucket_kind",
			fmt.Sprintf("unknown bucket kind %q (expected \"s3\" or \"file\")", c.BucketKind)})
	}

	if strings.TrimSpace(c.StartDate) == "" {
		issues = append(issues, Issue{SeverityError, "start_date", "start_date is required"})
	} else if _, err := time.Parse(time.RFC3339, c.StartDate); err != nil {
		issues = append(issues, Issue{SeverityError, "start_date",
			fmt.Sprintf("start_date %q is not RFC 3339: %v", c.StartDate, err)})
	}

	if len(c.Tables) == 0 {
		issues = append(issues, Issue{SeverityError, "tables", "at least one table must be configured"})
	}
	seen := make(map[string]struct{}, len(c.Tables))
	for i, t := range c.Tables {
		issues = append(issues, validateTable(i, t)...)
		if _, dup := seen[t.TableName]; dup && t.TableName != "" {
			issues = append(issues, Issue{SeverityError,
				fmt.Sprintf("tables[%d].table_name", i),
				fmt.Sprintf("duplicate table name %q", t.TableName)})
		}
		seen[t.TableName] = struct{}{}
	}

	issues = append(issues, validateSink(c.Sink)...)

	return issues
}

func validateTable(i int, t TableSpec) []Issue {
	var issues []Issue
	at := func(field string) string { return fmt.Sprintf("tables[%d].%s", i, field) }

	if strings.TrimSpace(t.TableName) == "" {
		issues = append(issues, Issue{SeverityError, at("table_name"), "table_name must not be empty"})
	}
	if t.SearchPattern == "" {
		issues = append(issues, Issue{SeverityWarning, at("search_pattern"),
			"empty search_pattern matches every key under the prefix"})
	} else if _, err := regexp.Compile(t.SearchPattern); err != nil {
		issues = append(issues, Issue{SeverityError, at("search_pattern"),
			fmt.Sprintf("invalid pattern: %v", err)})
	}
	if len(t.Delimiter) > 1 {
		issues = append(issues, Issue{SeverityWarning, at("delimiter"),
			fmt.Sprintf("delimiter %q is longer than one character; only the first rune is used", t.Delimiter)})
	}
	if _, ok := knownEncodings[strings.ToLower(t.Encoding)]; !ok {
		issues = append(issues, Issue{SeverityError, at("encoding"),
			fmt.Sprintf("unknown encoding %q", t.Encoding)})
	}
	return issues
}

func validateSink(s SinkConfig) []Issue {
	var issues []Issue
	if _, ok := knownSinkKinds[s.Kind]; !ok {
		issues = append(issues, Issue{SeverityError, "sink.kind",
			fmt.Sprintf("unknown sink kind %q", s.Kind)})
		return issues
	}
	switch s.Kind {
	case "postgres", "sqlite":
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "sink.dsn",
				fmt.Sprintf("dsn is required for the %s sink", s.Kind)})
		}
	}
	return issues
}

// HasErrors reports whether any issue carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
