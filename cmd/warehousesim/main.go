// Command warehousesim runs a warehouse simulation headless in real time,
// streams snapshots over WebSocket and prints a summary when all robots are done.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/config"
	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/discovery"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/planner"
	"github.com/elektrokombinacija/warehouse-sim/internal/scenario"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/stream"
)

func main() {
	var (
		configPath   = flag.String("config", "", "YAML or TOML config file")
		scenarioPath = flag.String("scenario", "", "scenario file; generated by the planner when empty")
		savePath     = flag.String("save", "", "write the resolved scenario here")
		metricsPath  = flag.String("metrics", "", "write run metrics as JSON here")
		addr         = flag.String("addr", "", "stream listen address (overrides config)")
		encoding     = flag.String("encoding", "", "stream encoding: json or proto (overrides config)")
		speed        = flag.Float64("speed", 0, "playback speed in cells per second (overrides config)")
		policy       = flag.String("obstacles", "", "obstacle policy: ignore or gate (overrides config)")
		autoReplan   = flag.Bool("auto-replan", false, "replan robots blocked by forklifts")
		noStream     = flag.Bool("no-stream", false, "do not serve the WebSocket stream")
		announce     = flag.Bool("announce", false, "announce the stream over mDNS")
		serve        = flag.Bool("serve", false, "keep serving after the run completes")
		width        = flag.Int("width", 0, "generated map width")
		height       = flag.Int("height", 0, "generated map height")
		robots       = flag.Int("robots", -1, "generated robot count")
		forklifts    = flag.Int("forklifts", -1, "generated forklift count")
		seed         = flag.Int64("seed", 0, "generator seed (0 picks one)")
		logLevel     = flag.String("log", "", "log level (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			os.Exit(1)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Stream.Addr = *addr
		case "encoding":
			cfg.Stream.Encoding = *encoding
		case "speed":
			cfg.Simulation.Speed = sim.ClampSpeed(*speed)
		case "obstacles":
			cfg.Simulation.ObstaclePolicy = *policy
		case "auto-replan":
			cfg.Simulation.AutoReplan = *autoReplan
		case "log":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stderr, cfg.Level(), "[WHSIM] ")
	logging.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newPlannerClient(ctx, cfg, log)

	src := scenario.Source{
		Path:     *scenarioPath,
		SavePath: *savePath,
		Generate: planner.GenerateRequest{Width: *width, Height: *height},
	}
	if *robots >= 0 {
		src.Generate.NumRobots = robots
	}
	if *forklifts >= 0 {
		src.Generate.Moving = forklifts
	}
	if *seed != 0 {
		src.Generate.Seed = seed
	}

	plan, err := src.Resolve(ctx, client)
	if err != nil {
		log.Fatalf("resolve plan: %v", err)
	}

	ccfg := cfg.ControllerConfig()
	ccfg.Logger = log
	ccfg.Replanner = client
	ctrl := sim.NewController(ccfg)

	// Stream clients can reset and replay, so only the first completion counts.
	done := make(chan struct{})
	var once sync.Once
	ctrl.AddObserver(sim.ObserverFuncs{
		State: func(from, to sim.PlaybackState) {
			if to == sim.Completed {
				once.Do(func() { close(done) })
			}
		},
		Task: func(agent core.AgentID, cell core.Cell) {
			log.Infof("robot %s completed task %s", agent, cell)
		},
	})

	var srv *http.Server
	if !*noStream {
		srv, err = startStream(ctrl, cfg, *announce, log)
		if err != nil {
			log.Fatalf("stream: %v", err)
		}
	}

	ctrl.Load(plan)
	if err := ctrl.Play(); err != nil {
		log.Fatalf("play: %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		interrupt(ctrl, log)
	}

	fmt.Println(renderSummary(ctrl.Snapshot(), ctrl.Metrics()))

	if *metricsPath != "" {
		if err := ctrl.ExportMetrics(*metricsPath); err != nil {
			log.Errorf("export metrics: %v", err)
		}
	}

	if srv != nil {
		if *serve && ctx.Err() == nil {
			log.Infof("run complete, still serving on %s", cfg.Stream.Addr)
			<-ctx.Done()
		}
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Warnf("stream shutdown: %v", err)
		}
	}
}

// interrupt freezes the run on a signal. A run already paused by a stream
// client only logs.
func interrupt(ctrl *sim.Controller, log *logging.Logger) {
	log.Infof("interrupted at t=%.2f", ctrl.Time())
	if err := ctrl.Pause(); err != nil {
		log.Warnf("pause: %v", err)
	}
}

func newPlannerClient(ctx context.Context, cfg config.Config, log *logging.Logger) *planner.Client {
	pcfg := planner.DefaultConfig()
	pcfg.BaseURL = cfg.Planner.URL
	pcfg.Timeout = cfg.Planner.Timeout.Duration
	pcfg.Logger = log

	if cfg.Planner.Discover {
		url, err := planner.Discover(ctx, cfg.Planner.Service, 3*time.Second)
		if err != nil {
			log.Warnf("%v, using %s", err, cfg.Planner.URL)
		} else {
			log.Infof("found planner at %s", url)
			pcfg.BaseURL = url
		}
	}
	return planner.NewClient(pcfg)
}

func startStream(ctrl *sim.Controller, cfg config.Config, announce bool, log *logging.Logger) (*http.Server, error) {
	codec, err := stream.NewCodec(cfg.Stream.Encoding)
	if err != nil {
		return nil, err
	}
	hub := stream.NewHub(ctrl, codec, log)
	ctrl.AddObserver(hub)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/snapshot", hub.SnapshotHandler())

	ln, err := net.Listen("tcp", cfg.Stream.Addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux}
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("stream server: %v", err)
		}
	}()
	log.Infof("streaming %s snapshots on ws://%s/ws", cfg.Stream.Encoding, ln.Addr())

	if announce {
		port := ln.Addr().(*net.TCPAddr).Port
		host, _ := os.Hostname()
		a, err := discovery.Announce(host, discovery.StreamService, port, map[string]string{
			"path":     "/ws",
			"encoding": cfg.Stream.Encoding,
			"port":     strconv.Itoa(port),
		})
		if err != nil {
			log.Warnf("announce: %v", err)
		} else {
			srv.RegisterOnShutdown(func() {
				if err := a.Stop(); err != nil {
					log.Warnf("stop announce: %v", err)
				}
			})
		}
	}
	return srv, nil
}
