// Command warehousevis opens a desktop viewer for a warehouse simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/elektrokombinacija/warehouse-sim/internal/config"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/planner"
	"github.com/elektrokombinacija/warehouse-sim/internal/scenario"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
	"github.com/elektrokombinacija/warehouse-sim/internal/vis"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file")
	scenarioPath := flag.String("scenario", "", "scenario file; generated by the planner when empty")
	savePath := flag.String("save", "", "write the resolved scenario here")
	autoplay := flag.Bool("play", false, "start playback immediately")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			os.Exit(1)
		}
	}
	log := logging.New(os.Stderr, cfg.Level(), "[WHVIS] ")
	logging.SetDefault(log)

	pcfg := planner.DefaultConfig()
	pcfg.BaseURL = cfg.Planner.URL
	pcfg.Timeout = cfg.Planner.Timeout.Duration
	pcfg.Logger = log
	client := planner.NewClient(pcfg)

	plan, err := scenario.Source{Path: *scenarioPath, SavePath: *savePath}.Resolve(context.Background(), client)
	if err != nil {
		log.Fatalf("resolve plan: %v", err)
	}

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Warehouse Simulation"),
			app.Size(unit.Dp(1400), unit.Dp(900)),
		)

		sched := sim.NewFrameScheduler(window.Invalidate)
		ccfg := cfg.ControllerConfig()
		ccfg.Scheduler = sched
		ccfg.Replanner = client
		ccfg.Logger = log
		ctrl := sim.NewController(ccfg)

		application := vis.NewApp(window, ctrl, sched)
		application.Load(plan)
		if *autoplay {
			if err := ctrl.Play(); err != nil {
				log.Warnf("play: %v", err)
			}
		}

		if err := application.Run(window); err != nil {
			log.Fatalf("%v", err)
		}
		os.Exit(0)
	}()
	app.Main()
}
