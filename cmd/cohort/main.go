// Command cohort runs one clustering batch: it loads a store feature matrix
// and an optional temperature-band table, partitions the stores into
// size-bounded clusters, and writes the assignment, profile, and report
// tables. Outputs appear atomically and only after the run succeeds, so a
// failed run never exposes a partial assignment table.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storewise/cohort/internal/cluster"
	"github.com/storewise/cohort/internal/engine"
	"github.com/storewise/cohort/internal/matrix"
)

func main() {
	var (
		matrixPath = flag.String("matrix", "", "feature matrix CSV: store_id,feature...")
		bandsPath  = flag.String("bands", "", "optional band CSV: store_id,band")
		outDir     = flag.String("out", ".", "output directory")
		target     = flag.Int("target-size", 50, "target cluster size")
		minSize    = flag.Int("min-size", 50, "minimum cluster size")
		maxSize    = flag.Int("max-size", 50, "maximum cluster size")
		components = flag.Int("components", 16, "PCA component count")
		strategy   = flag.String("strategy", cluster.StrategyKMeans,
			"clustering strategy: kmeans | agglomerative-average | agglomerative-ward")
		balance   = flag.Bool("balance", true, "balance cluster sizes into the band")
		partition = flag.Bool("partition", false, "cluster each temperature band separately")
		seed      = flag.Int64("seed", 1, "random seed")
		workers   = flag.Int("workers", 0, "max parallel cohorts (0 = NumCPU)")
		logLevel  = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if *matrixPath == "" {
		fmt.Fprintln(os.Stderr, "usage: cohort -matrix stores.csv [-bands bands.csv] [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	m, err := loadMatrix(*matrixPath, *bandsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading inputs")
	}

	cfg := engine.DefaultConfig()
	cfg.TargetClusterSize = *target
	cfg.MinClusterSize = *minSize
	cfg.MaxClusterSize = *maxSize
	cfg.Components = *components
	cfg.Strategy = *strategy
	cfg.Balance = *balance
	cfg.PartitionByBand = *partition
	cfg.Seed = *seed
	if *workers > 0 {
		cfg.MaxParallelCohorts = *workers
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configuring engine")
	}

	res, err := eng.Run(context.Background(), m)
	if err != nil {
		log.Fatal().Err(err).Msg("clustering run failed")
	}

	for name, v := range map[string]any{
		"assignments.json": res.Assignments,
		"profiles.json":    res.Profiles,
		"report.json":      res.Report,
	} {
		if err := writeJSONAtomic(filepath.Join(*outDir, name), v); err != nil {
			log.Fatal().Err(err).Str("file", name).Msg("writing output")
		}
	}

	log.Info().
		Str("run_id", res.Report.RunID).
		Int("clusters", res.Report.Clusters).
		Int("assigned", len(res.Assignments)).
		Bool("partial_failure", res.Report.PartialFailure).
		Msg("outputs written")
	if res.Report.PartialFailure {
		os.Exit(1)
	}
}

// loadMatrix reads the feature matrix CSV (header: store_id,feature...) and
// optionally joins the band CSV (header: store_id,band).
func loadMatrix(matrixPath, bandsPath string) (*matrix.Matrix, error) {
	f, err := os.Open(matrixPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading matrix header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("matrix needs a store_id column and at least one feature")
	}
	columns := header[1:]

	var stores []matrix.Store
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading matrix row: %w", err)
		}
		features := make([]float64, len(columns))
		for i, raw := range rec[1:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("store %s feature %s: %w", rec[0], columns[i], err)
			}
			features[i] = v
		}
		stores = append(stores, matrix.Store{ID: rec[0], Features: features})
	}

	if bandsPath != "" {
		bands, err := loadBands(bandsPath)
		if err != nil {
			return nil, err
		}
		for i := range stores {
			stores[i].Band = bands[stores[i].ID]
		}
	}

	return matrix.New(columns, stores)
}

func loadBands(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("reading bands header: %w", err)
	}
	bands := make(map[string]string)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bands row: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("bands row needs store_id,band")
		}
		bands[rec[0]] = rec[1]
	}
	return bands, nil
}

// writeJSONAtomic writes v as JSON via a temp file in the destination
// directory, fsyncs, and renames it into place.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
