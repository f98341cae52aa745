package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"s3tap/internal/config"
	"s3tap/internal/datasource"
	"s3tap/internal/datasource/file"
	"s3tap/internal/datasource/s3"
	"s3tap/internal/metrics"
	"s3tap/internal/metrics/datadog"
	"s3tap/internal/metrics/prompush"
	"s3tap/internal/schema"
	"s3tap/internal/sink"
	"s3tap/internal/state"
	syncer "s3tap/internal/sync"

	// register all backends with the sink factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "s3tap/internal/sink/all"
)

// catalog is the on-disk shape of the -catalog file: the declared schema and
// metadata for every table the config may select.
type catalog struct {
	Streams []schema.Stream `json:"streams"`
}

// main is the entry point for the tap binary. It loads the config, state,
// and catalog, optionally initializes a metrics backend, and syncs each
// selected table in sequence.
func main() {
	var (
		cfgPath           string
		statePath         string
		catalogPath       string
		tablesFlg         string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "", "tap config JSON path (required)")
	flag.StringVar(&statePath, "state", "", "state JSON path; omit to start from start_date")
	flag.StringVar(&catalogPath, "catalog", "", "catalog JSON path with stream schemas (required unless -validate)")
	flag.StringVar(&tablesFlg, "tables", "", "comma-separated table names to sync (default: all configured)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none); overrides env METRICS_BACKEND")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "http://localhost:9091", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "127.0.0.1:8125", "DogStatsD address for the datadog backend")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// RECORD/STATE messages own stdout for the singer sink; logs go to stderr.
	logrus.SetOutput(os.Stderr)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if cfgPath == "" {
		fatalf("-config is required")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		logrus.Errorf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		logrus.Infof("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	st, err := state.Load(statePath)
	if err != nil {
		fatalf("load state: %v", err)
	}

	streams, err := loadCatalog(catalogPath)
	if err != nil {
		fatalf("load catalog: %v", err)
	}

	setupMetrics(metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			logrus.Warnf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	bucket, err := newBucket(ctx, cfg)
	if err != nil {
		fatalf("bucket: %v", err)
	}

	snk, err := sink.New(ctx, sink.Config{
		Kind:  cfg.Sink.Kind,
		DSN:   cfg.Sink.DSN,
		Table: cfg.Sink.Table,
		Out:   os.Stdout,
	})
	if err != nil {
		fatalf("sink: %v", err)
	}
	defer func() {
		if err := snk.Close(ctx); err != nil {
			logrus.Warnf("sink: close error: %v", err)
		}
	}()

	selected := tableFilter(tablesFlg)

	var total int64
	for _, spec := range cfg.Tables {
		if selected != nil && !selected[spec.TableName] {
			continue
		}
		stream, ok := streams[spec.TableName]
		if !ok {
			fatalf("catalog has no stream for table %q", spec.TableName)
		}
		n, err := syncer.SyncStream(ctx, cfg, st, spec, stream, bucket, snk)
		total += n
		if err != nil {
			logrus.Fatalf("table %q: %v", spec.TableName, err)
		}
	}

	logrus.Infof("synced %d records in %s", total, time.Since(start).Truncate(time.Millisecond))
}

// loadCatalog reads the stream declarations and indexes them by table name.
func loadCatalog(path string) (map[string]*schema.Stream, error) {
	if path == "" {
		return nil, fmt.Errorf("-catalog is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cat catalog
	if err := json.NewDecoder(f).Decode(&cat); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}

	out := make(map[string]*schema.Stream, len(cat.Streams))
	for i := range cat.Streams {
		s := &cat.Streams[i]
		out[s.TableName] = s
	}
	return out, nil
}

// newBucket selects the discovery/fetch implementation from the config.
func newBucket(ctx context.Context, cfg *config.Config) (datasource.Bucket, error) {
	switch cfg.BucketKind {
	case "", "s3":
		return s3.New(ctx, cfg)
	case "file":
		return file.New(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unknown bucket kind %q", cfg.BucketKind)
	}
}

// setupMetrics installs the selected metrics backend; the nop default stays
// in place on any failure.
func setupMetrics(backendName, gwURL, dogstatsdAddr string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "", "none":
		// metrics disabled; nop backend remains
		if verbose {
			logrus.Debugf("metrics: disabled (backend=%q)", backendName)
		}

	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend("s3tap", gwURL)
		if err != nil {
			logrus.Warnf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		logrus.Infof("metrics: url=%v, backend=%v", gwURL, backendName)
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: dogstatsdAddr, Namespace: "s3tap."})
		if err != nil {
			logrus.Warnf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		logrus.Infof("metrics: addr=%v, backend=%v", dogstatsdAddr, backendName)
		metrics.SetBackend(b)

	default:
		logrus.Warnf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// tableFilter parses the -tables flag; nil means all tables.
func tableFilter(flg string) map[string]bool {
	if strings.TrimSpace(flg) == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, name := range strings.Split(flg, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = true
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
