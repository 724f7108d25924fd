package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/rollstate/internal/db"
	"github.com/banshee-data/rollstate/internal/monitoring"
	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/publish"
	"github.com/banshee-data/rollstate/internal/replay"
	"github.com/banshee-data/rollstate/internal/serialsource"
	"github.com/banshee-data/rollstate/internal/timeutil"
)

type liveOptions struct {
	tuning     tuningFlags
	port       string
	baud       int
	parity     string
	mqttBroker string
	mqttTopic  string
	mqttClient string
	listen     string
	dbPath     string
	flags      *flag.FlagSet
}

func parseLiveFlags(args []string) (*liveOptions, error) {
	opts := &liveOptions{}
	fs := flag.NewFlagSet("rollstate live", flag.ContinueOnError)
	fs.SetOutput(log.Writer())

	opts.tuning.register(fs)
	fs.StringVar(&opts.port, "port", "", "Serial port of the sensor, e.g. /dev/ttyUSB0 (required)")
	fs.IntVar(&opts.baud, "baud", serialsource.DefaultBaudRate, "Serial baud rate")
	fs.StringVar(&opts.parity, "parity", "N", "Serial parity (N, E or O)")
	fs.StringVar(&opts.mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty logs transitions instead)")
	fs.StringVar(&opts.mqttTopic, "mqtt-topic", publish.DefaultTopic, "MQTT topic for state transitions")
	fs.StringVar(&opts.mqttClient, "mqtt-client-id", "rollstate", "MQTT client ID")
	fs.StringVar(&opts.listen, "listen", "", "Serve state transitions at /ws and /status on this address (empty disables)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite results database (empty disables)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.port == "" {
		return nil, errors.New("serial port is required")
	}
	opts.flags = fs
	return opts, nil
}

// liveSession classifies samples as they arrive and fans the results out to
// the sinks and the transition publisher.
type liveSession struct {
	detector  *motion.Detector
	tracker   publish.Tracker
	publisher publish.Publisher
	sinks     []replay.Sink
	summary   *replay.Summary
}

func newLiveSession(detector *motion.Detector, publisher publish.Publisher, sinks ...replay.Sink) *liveSession {
	return &liveSession{
		detector:  detector,
		publisher: publisher,
		sinks:     sinks,
		summary:   replay.NewSummary(),
	}
}

func (s *liveSession) handle(sample motion.Sample) error {
	m := sample.Measurements
	label, err := s.detector.ProcessSample(sample.Time, m.X, m.Y, m.Z)
	if err != nil {
		return err
	}
	res := replay.Result{
		Row:       replay.Row{Millis: sample.Time, X: m.X, Y: m.Y, Z: m.Z},
		Predicted: label,
		Rule:      s.detector.LastResult().Rule,
	}
	monitoring.Logf("Predicted state: %s", label)
	monitoring.Debugf("%d ms: %s via rule %s", sample.Time, label, res.Rule)

	for _, sink := range s.sinks {
		if err := sink.Record(res); err != nil {
			return err
		}
	}
	s.summary.Add("", label)

	if tr, ok := s.tracker.Observe(sample.Time, label); ok {
		if err := s.publisher.Publish(tr); err != nil {
			// A broker outage must not stop the capture.
			log.Printf("failed to publish transition: %v", err)
		}
	}
	return nil
}

func runLive(ctx context.Context, args []string) error {
	opts, err := parseLiveFlags(args)
	if err != nil {
		return err
	}
	opts.tuning.applyLogging()

	cfg, err := opts.tuning.load(opts.flags)
	if err != nil {
		return err
	}
	detector, err := cfg.NewDetector()
	if err != nil {
		return err
	}

	publisher := publish.Multi{publish.LogPublisher{}}
	if opts.mqttBroker != "" {
		mqttPub, err := publish.NewMQTTPublisher(publish.MQTTOptions{
			Broker:   opts.mqttBroker,
			ClientID: opts.mqttClient,
			Topic:    opts.mqttTopic,
		})
		if err != nil {
			return err
		}
		publisher = append(publisher, mqttPub)
	}
	if opts.listen != "" {
		hub := publish.NewHub()
		publisher = append(publisher, hub)
		stopServer := serveTransitions(opts.listen, hub)
		defer stopServer()
	}
	defer publisher.Close()

	var (
		sinks    []replay.Sink
		recorder *db.PredictionRecorder
	)
	if opts.dbPath != "" {
		store, err := db.NewDB(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()

		run := &db.Run{
			Source:       opts.port,
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

	port, err := serialsource.Open(opts.port, serialsource.PortOptions{BaudRate: opts.baud, Parity: opts.parity})
	if err != nil {
		return err
	}
	src := serialsource.NewSource(port, timeutil.RealClock{})
	src.SetUnits(opts.tuning.units)
	defer src.Close()
	log.Printf("reading samples from %s", opts.port)

	session := newLiveSession(detector, publisher, sinks...)
	runErr := src.Run(ctx, session.handle)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	log.Printf("capture stopped after %d samples (%d malformed lines skipped)", session.summary.Rows, src.Skipped())

	if recorder != nil {
		if err := recorder.Finish(session.summary); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to store run: %w", err)
		}
	}
	return runErr
}

// serveTransitions starts an HTTP server exposing hub at /ws and its status
// at /status, and returns a function that shuts it down.
func serveTransitions(addr string, hub *publish.Hub) func() {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/status", hub.ServeStatus)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("serving state transitions on ws://%s/ws", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("transition server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("transition server shutdown: %v", err)
		}
	}
}

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("rollstate migrate", flag.ContinueOnError)
	fs.SetOutput(log.Writer())
	dbPath := fs.String("db", "rollstate.db", "SQLite results database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}
