package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"nklandscape/internal/scape"
	"nklandscape/internal/scapeid"
	"nklandscape/internal/storage"
	nkapi "nklandscape/pkg/nklandscape"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
	dbPath     = "nklandscape.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "matrix":
		return runMatrix(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config path (.json, .yaml, .yml or .toml)")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	n := fs.Int("n", nkapi.DefaultN, "number of genes")
	k := fs.Int("k", nkapi.DefaultK, "number of interdependencies per gene")
	matrixName := fs.String("matrix", scapeid.Random, "interdependency matrix: random or a preset name")
	steps := fs.Int("time", nkapi.DefaultTime, "time steps per round")
	repeat := fs.Int("repeat", nkapi.DefaultRepeat, "number of rounds")
	mean := fs.Float64("mean", 0, "mean of the agent's perception error")
	std := fs.Float64("std", 0, "standard deviation of the agent's perception error")
	confidence := fs.Float64("confidence", nkapi.DefaultConfidence, "confidence level of the fitness interval")
	alleles := fs.Int("alleles", scape.DefaultAlleles, "options per gene used to size the contribution table")
	seed := fs.Int64("seed", 0, "rng seed (0 derives one from the clock)")
	workers := fs.Int("workers", 0, "worker count (0 uses GOMAXPROCS)")
	normalized := fs.Bool("normalized-perception", false, "agent compares normalized instead of raw fitness")
	plot := fs.Bool("plot", false, "render fitness.png next to the run artifacts")
	outDir := fs.String("out", runsDir, "run artifacts directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	verbose := fs.Bool("verbose", false, "log every round")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	defaults := runFileConfig{Plot: *plot, RunID: *runID}
	defaults.N = *n
	defaults.K = *k
	defaults.Matrix = *matrixName
	defaults.Time = *steps
	defaults.Repeat = *repeat
	defaults.Mean = *mean
	defaults.Std = *std
	defaults.Confidence = *confidence
	defaults.Alleles = *alleles
	defaults.Seed = *seed
	defaults.Workers = *workers
	defaults.Normalized = *normalized

	cfg := defaults
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath, defaults)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := overrideFromFlags(&cfg, setFlags, map[string]any{
			"run-id":                *runID,
			"n":                     *n,
			"k":                     *k,
			"matrix":                *matrixName,
			"time":                  *steps,
			"repeat":                *repeat,
			"mean":                  *mean,
			"std":                   *std,
			"confidence":            *confidence,
			"alleles":               *alleles,
			"seed":                  *seed,
			"workers":               *workers,
			"normalized-perception": *normalized,
			"plot":                  *plot,
		}); err != nil {
			return err
		}
	}
	if cfg.Std < 0 {
		return errors.New("std must be >= 0")
	}

	client, err := nkapi.New(nkapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPathFlag,
		RunsDir:    *outDir,
		ExportsDir: exportsDir,
		Logger:     newLogger(os.Stderr, *verbose),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, cfg.request())
	if err != nil {
		return err
	}
	params := summary.Parameters
	fmt.Printf("run completed run_id=%s matrix=%s n=%d k=%d time=%d repeat=%d mean=%v std=%v seed=%d\n",
		summary.RunID, params.Matrix, params.N, params.K, params.Time, params.Repeat, params.Mean, params.Std, params.Seed)
	fmt.Printf("search_space=%s genomes\n", humanize.Comma(int64(scape.CandidateCount(params.N))))
	for i := range summary.Statistics.Mean {
		fmt.Printf("time=%d mean=%.6f lower=%.6f upper=%.6f\n",
			i, summary.Statistics.Mean[i], summary.Statistics.LowerConf[i], summary.Statistics.UpperConf[i])
	}
	reached := 0
	for _, round := range summary.Rounds {
		if round.ReachedGlobalMax {
			reached++
		}
	}
	fmt.Printf("reached_global_max=%d/%d\n", reached, len(summary.Rounds))
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	if summary.PlotPath != "" {
		fmt.Printf("plot=%s\n", filepath.Clean(summary.PlotPath))
	}
	return nil
}

func runMatrix(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("matrix", flag.ContinueOnError)
	n := fs.Int("n", nkapi.DefaultN, "number of genes")
	k := fs.Int("k", nkapi.DefaultK, "number of interdependencies per gene")
	seed := fs.Int64("seed", 1, "rng seed")
	preset := fs.String("preset", "", "preset name: "+fmt.Sprint(scape.PresetNames()))
	jsonOut := fs.Bool("json", false, "emit matrix rows as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := nkapi.New(nkapi.Options{Logger: newLogger(os.Stderr, false)})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	m, err := client.Matrix(ctx, nkapi.MatrixRequest{N: *n, K: *k, Seed: *seed, Preset: *preset})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m.Rows())
	}
	contributions, err := scape.RequiredContributions(m.Dimensions(), scape.DefaultAlleles)
	if err != nil {
		return err
	}
	fmt.Printf("n=%d k=%d contributions=%s\n", m.N(), m.K(), humanize.Comma(int64(contributions)))
	fmt.Print(m.String())
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	dir := fs.String("runs-dir", runsDir, "run artifacts directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := nkapi.New(nkapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPathFlag,
		RunsDir:   *dir,
		Logger:    newLogger(os.Stderr, false),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, nkapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s matrix=%s n=%d k=%d time=%d repeat=%d mean=%v std=%v seed=%d final_mean_fitness=%.6f\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Matrix,
			item.N,
			item.K,
			item.Time,
			item.Repeat,
			item.ErrorMean,
			item.ErrorStd,
			item.Seed,
			item.FinalMean,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	dir := fs.String("runs-dir", runsDir, "run artifacts directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	rounds := fs.Bool("rounds", false, "print each round's summary and fitness trajectory")
	jsonOut := fs.Bool("json", false, "emit parameters, statistics and trajectories as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := nkapi.New(nkapi.Options{
		StoreKind: *storeKind,
		DBPath:    *dbPathFlag,
		RunsDir:   *dir,
		Logger:    newLogger(os.Stderr, false),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Show(ctx, nkapi.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	p := result.Parameters
	fmt.Printf("run_id=%s matrix=%s n=%d k=%d time=%d repeat=%d confidence=%v\n",
		result.RunID, p.Matrix, p.N, p.K, p.Time, p.Repeat, p.Confidence)
	for i := range result.Statistics.Mean {
		fmt.Printf("time=%d mean=%.6f lower=%.6f upper=%.6f\n",
			i, result.Statistics.Mean[i], result.Statistics.LowerConf[i], result.Statistics.UpperConf[i])
	}
	if !*rounds {
		return nil
	}
	for r, trajectory := range result.Trajectories {
		line := fmt.Sprintf("round=%d", r)
		if r < len(result.Rounds) {
			summary := result.Rounds[r]
			line += fmt.Sprintf(" moves=%d global_max=%s reached_global_max=%t",
				summary.Moves, summary.GlobalMaxPosition, summary.ReachedGlobalMax)
		}
		values := make([]string, len(trajectory))
		for i, v := range trajectory {
			values[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		fmt.Printf("%s fitness=%s\n", line, strings.Join(values, ","))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	dir := fs.String("runs-dir", runsDir, "run artifacts directory")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := nkapi.New(nkapi.Options{RunsDir: *dir, ExportsDir: *outDir, Logger: newLogger(os.Stderr, false)})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, nkapi.ExportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

// newLogger writes text records to terminals and JSON records otherwise.
func newLogger(w *os.File, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: nkctl <run|matrix|runs|show|export> [flags]", msg)
}
