// Package sync drives the incremental load: it discovers eligible source
// files for a table, replays them oldest-first, and advances the table's
// modified_since bookmark as each file completes.
//
// The package is deliberately single-threaded. Files must land in
// last-modified order for the bookmark to be meaningful, and the bookmark is
// persisted through the sink after every file so an interrupted run resumes
// at the last fully synced file instead of the beginning.
//
// Errors are never swallowed here: a row that fails transformation aborts
// its file, the file's bookmark is not written, and the error propagates to
// the caller.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"s3tap/internal/config"
	"s3tap/internal/datasource"
	"s3tap/internal/metrics"
	"s3tap/internal/parser/csv"
	"s3tap/internal/records"
	"s3tap/internal/schema"
	"s3tap/internal/sink"
	"s3tap/internal/state"
	"s3tap/internal/transformer"
)

// Virtual columns stamped onto every row before transformation, mirroring
// the record provenance fields emitted by database-backed sources.
const (
	SourceBucketField = "_sdc_source_bucket"
	SourceFileField   = "_sdc_source_file"
	SourceLinenoField = "_sdc_source_lineno"
)

// SyncStream syncs every eligible file for one table and returns the total
// record count.
//
// The starting watermark is the table's modified_since bookmark when
// present, else the configured start_date. Eligible files are sorted
// ascending by last-modified and processed strictly in that order; after
// each file the bookmark is set to that file's last-modified time and the
// full state snapshot is written through the sink.
func SyncStream(ctx context.Context, cfg *config.Config, st *state.State, spec config.TableSpec, stream *schema.Stream, bucket datasource.Bucket, snk sink.Sink) (int64, error) {
	// The suffixed name keys both the output stream and the bookmark.
	table := spec.TableName + cfg.TableSuffix

	since, err := startingWatermark(cfg, st, table)
	if err != nil {
		return 0, err
	}

	logrus.Infof("syncing table %q using files modified since %s", table, since.UTC().Format(time.RFC3339))

	listStart := time.Now()
	files, err := bucket.List(ctx, spec, since)
	metrics.RecordStep(table, "list", err, time.Since(listStart))
	if err != nil {
		return 0, fmt.Errorf("list files for table %q: %w", spec.TableName, err)
	}

	// Oldest first, so the bookmark only ever moves forward.
	sort.Slice(files, func(i, j int) bool {
		return files[i].LastModified.Before(files[j].LastModified)
	})

	logrus.Infof("found %d files to sync for table %q", len(files), table)

	var total int64
	for _, f := range files {
		fileStart := time.Now()
		n, err := syncFile(ctx, cfg, f.Key, spec, stream, bucket, snk)
		metrics.RecordStep(table, "sync_file", err, time.Since(fileStart))
		if err != nil {
			return total, err
		}
		total += n
		metrics.RecordFiles(table, 1)

		st.WriteBookmark(table, state.ModifiedSince, f.LastModified.UTC().Format(time.RFC3339))
		if err := snk.WriteState(ctx, st); err != nil {
			return total, fmt.Errorf("persist state after %q: %w", f.Key, err)
		}
	}

	logrus.Infof("table %q: wrote %d records from %d files", table, total, len(files))
	return total, nil
}

// syncFile replays one source file through parse, transform, and the sink,
// returning the number of records written. The first bad row aborts the
// file.
func syncFile(ctx context.Context, cfg *config.Config, key string, spec config.TableSpec, stream *schema.Stream, bucket datasource.Bucket, snk sink.Sink) (int64, error) {
	logrus.Infof("syncing file %q", key)

	body, err := bucket.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", key, err)
	}
	defer body.Close()

	it, err := csv.NewIterator(body, spec)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", key, err)
	}

	sch, md := effectiveStream(spec, stream)
	table := spec.TableName + cfg.TableSuffix

	var count int64
	for {
		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read %q line %d: %w", key, it.Line(), err)
		}

		extractedAt := time.Now().UTC()

		rec := row
		if cfg.SetEmptyValuesNull {
			rec = records.NullifyEmpty(row).(records.Record)
		}
		rec[SourceBucketField] = cfg.Bucket
		rec[SourceFileField] = key
		rec[SourceLinenoField] = it.Line()

		out, err := transformer.Transform(rec, sch, md)
		if err != nil {
			return count, fmt.Errorf("file %q line %d: %w", key, it.Line(), err)
		}

		if err := snk.WriteRecord(ctx, table, out, extractedAt); err != nil {
			return count, fmt.Errorf("write record from %q line %d: %w", key, it.Line(), err)
		}
		count++
	}

	metrics.RecordRows(table, "synced", count)
	logrus.Infof("synced %d rows from %q", count, key)
	return count, nil
}

// startingWatermark resolves the table's effective watermark: the stored
// modified_since bookmark when present, else the configured start_date.
func startingWatermark(cfg *config.Config, st *state.State, tableName string) (time.Time, error) {
	if s := st.GetBookmarkString(tableName, state.ModifiedSince); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("bookmark %s for table %q: %w", state.ModifiedSince, tableName, err)
		}
		return ts, nil
	}
	ts, err := cfg.StartDateTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("table %q: %w", tableName, err)
	}
	return ts, nil
}

// effectiveStream derives the schema and metadata actually applied to rows:
// date_overrides columns are forced to date-time coercion, and the virtual
// provenance columns (plus the wide-row overflow column) are declared and
// marked automatic so selection rules can never drop them.
func effectiveStream(spec config.TableSpec, stream *schema.Stream) (*schema.Schema, schema.Metadata) {
	props := make(map[string]*schema.Schema)
	if stream.Schema != nil {
		for name, s := range stream.Schema.Properties {
			props[name] = s
		}
	}
	for _, field := range spec.DateOverrides {
		props[field] = &schema.Schema{
			Type:   schema.TypeList{"null", "string"},
			Format: "date-time",
		}
	}
	props[SourceBucketField] = &schema.Schema{Type: schema.TypeList{"string"}}
	props[SourceFileField] = &schema.Schema{Type: schema.TypeList{"string"}}
	props[SourceLinenoField] = &schema.Schema{Type: schema.TypeList{"integer"}}
	// Overflow cells are nullable too: NullifyEmpty may rewrite a blank
	// overflow cell to null before coercion.
	props[csv.ExtraField] = &schema.Schema{
		Type:  schema.TypeList{"null", "array"},
		Items: &schema.Schema{Type: schema.TypeList{"null", "string"}},
	}

	sch := &schema.Schema{Type: schema.TypeList{"object"}, Properties: props}

	md := make(schema.Metadata, len(stream.Metadata)+4)
	for k, v := range schema.ToMap(stream.Metadata) {
		md[k] = v
	}
	for _, field := range []string{SourceBucketField, SourceFileField, SourceLinenoField, csv.ExtraField} {
		md[field] = map[string]any{"inclusion": schema.InclusionAutomatic}
	}
	return sch, md
}
