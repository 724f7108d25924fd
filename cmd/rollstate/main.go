// Command rollstate classifies accelerometer samples from a die as OnFace,
// Rolling or Handling, either by replaying a recorded CSV file or live from a
// serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/rollstate/internal/config"
	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/units"
	"github.com/banshee-data/rollstate/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("rollstate: %v", err)
	}
}

// run dispatches to the subcommand named by args[0], defaulting to replay.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "live":
			return runLive(ctx, args[1:])
		case "migrate":
			return runMigrate(args[1:], stdout)
		}
	}
	return runReplay(ctx, args, stdout)
}

// tuningFlags are shared by the replay and live subcommands.
type tuningFlags struct {
	configPath string
	capacity   int
	maxAge     int64
	backtrack  int
	units      string
	quiet      bool
	debug      bool
}

func (tf *tuningFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&tf.configPath, "config", "", "Path to a tuning JSON or YAML file (defaults built in)")
	fs.IntVar(&tf.capacity, "capacity", config.DefaultCapacity, "History capacity in samples")
	fs.Int64Var(&tf.maxAge, "max-age", config.DefaultMaxAgeMillis, "Maximum sample age in milliseconds")
	fs.IntVar(&tf.backtrack, "max-backtrack", 0, "Frames used by the averaged rules (0 = capacity)")
	fs.StringVar(&tf.units, "units", units.G, "Acceleration units of the input ("+units.GetValidUnitsString()+")")
	fs.BoolVar(&tf.quiet, "quiet", false, "Suppress per-sample log output")
	fs.BoolVar(&tf.debug, "debug", false, "Log the rule behind every label")
}

// load resolves the tuning configuration. Flags given explicitly on the
// command line override values from the config file.
func (tf *tuningFlags) load(fs *flag.FlagSet) (*config.TuningConfig, error) {
	if !units.IsValid(tf.units) {
		return nil, fmt.Errorf("invalid units %q: expected one of %s", tf.units, units.GetValidUnitsString())
	}

	cfg := config.DefaultTuningConfig()
	if tf.configPath != "" {
		loaded, err := config.LoadTuningConfig(tf.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "capacity":
			cfg.Capacity = &tf.capacity
		case "max-age":
			cfg.MaxAgeMillis = &tf.maxAge
		case "max-backtrack":
			cfg.MaxBacktrack = &tf.backtrack
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyLogging installs the loggers selected by -quiet and -debug.
func (tf *tuningFlags) applyLogging() {
	if tf.quiet {
		monitoring.SetLogger(nil)
	} else {
		monitoring.SetLogger(log.Printf)
	}
	if tf.debug {
		monitoring.SetDebugLogger(log.Printf)
	} else {
		monitoring.SetDebugLogger(nil)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "rollstate %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
}
