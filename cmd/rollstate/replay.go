package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/banshee-data/rollstate/internal/db"
	"github.com/banshee-data/rollstate/internal/fsutil"
	"github.com/banshee-data/rollstate/internal/replay"
	"github.com/banshee-data/rollstate/internal/report"
	"github.com/banshee-data/rollstate/internal/security"
)

type replayOptions struct {
	tuning    tuningFlags
	input     string
	output    string
	dbPath    string
	plotPath  string
	chartPath string
	showVer   bool
	flags     *flag.FlagSet
}

func parseReplayFlags(args []string, stderr io.Writer) (*replayOptions, error) {
	opts := &replayOptions{}
	fs := flag.NewFlagSet("rollstate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: rollstate [flags] INFILE")
		fmt.Fprintln(fs.Output(), "       rollstate live [flags]")
		fmt.Fprintln(fs.Output(), "       rollstate migrate [-db path] <command>")
		fs.PrintDefaults()
	}

	opts.tuning.register(fs)
	fs.StringVar(&opts.output, "output", "out.csv", "Prediction CSV to write")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite results database (empty disables)")
	fs.StringVar(&opts.plotPath, "plot", "", "Write a PNG timeline plot to this path")
	fs.StringVar(&opts.chartPath, "chart", "", "Write an HTML timeline chart to this path")
	fs.BoolVar(&opts.showVer, "version", false, "Print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.flags = fs
	if opts.showVer {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one INFILE, got %d arguments", fs.NArg())
	}
	opts.input = fs.Arg(0)
	return opts, nil
}

func runReplay(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseReplayFlags(args, log.Writer())
	if err != nil {
		return err
	}
	if opts.showVer {
		printVersion(stdout)
		return nil
	}
	opts.tuning.applyLogging()

	if err := security.ValidateOutputPaths(opts.input, opts.output, opts.dbPath, opts.plotPath, opts.chartPath); err != nil {
		return err
	}

	cfg, err := opts.tuning.load(opts.flags)
	if err != nil {
		return err
	}
	detector, err := cfg.NewDetector()
	if err != nil {
		return err
	}

	var (
		sinks    []replay.Sink
		timeline *report.Timeline
		recorder *db.PredictionRecorder
	)
	if opts.plotPath != "" || opts.chartPath != "" {
		timeline = report.NewTimeline(opts.input)
		sinks = append(sinks, timeline)
	}
	if opts.dbPath != "" {
		store, err := db.NewDB(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		run := &db.Run{
			Source:       opts.input,
			Capacity:     cfg.GetCapacity(),
			MaxAgeMillis: cfg.GetMaxAgeMillis(),
			MaxBacktrack: detector.MaxBacktrack(),
		}
		if err := store.CreateRun(run); err != nil {
			return err
		}
		log.Printf("recording run %s to %s", run.ID, opts.dbPath)
		recorder = db.NewPredictionRecorder(store, run.ID, db.DefaultBatchSize)
		sinks = append(sinks, recorder)
	}

	fsys := fsutil.OSFileSystem{}
	runner := replay.NewRunner(detector, sinks...)
	runner.Units = opts.tuning.units
	summary, runErr := runner.RunFiles(ctx, fsys, opts.input, opts.output)
	if summary != nil {
		summary.LogTo(log.Printf)
	} else {
		summary = replay.NewSummary()
	}

	// Close the run even when the replay stopped early, keeping the rows
	// classified so far.
	if recorder != nil {
		if err := recorder.Finish(summary); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to store run: %w", err))
		}
	}
	if runErr != nil {
		return runErr
	}
	return writeReports(fsys, timeline, opts.plotPath, opts.chartPath)
}

func writeReports(fsys fsutil.FileSystem, timeline *report.Timeline, plotPath, chartPath string) error {
	if timeline == nil || timeline.Len() == 0 {
		return nil
	}
	if plotPath != "" {
		if err := timeline.WritePNG(fsys, plotPath); err != nil {
			return err
		}
		log.Printf("wrote plot %s", plotPath)
	}
	if chartPath != "" {
		f, err := fsys.Create(chartPath)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		if err := timeline.WriteHTML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("wrote chart %s", chartPath)
	}
	return nil
}
