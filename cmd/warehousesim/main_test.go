package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/elektrokombinacija/warehouse-sim/internal/core"
	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
	"github.com/elektrokombinacija/warehouse-sim/internal/sim"
)

func TestInterrupt(t *testing.T) {
	tests := []struct {
		name      string
		play      bool
		wantState sim.PlaybackState
		wantWarn  bool
	}{
		{"running", true, sim.Paused, false},
		{"not started", false, sim.Ready, true},
	}
	for _, tt := range tests {
		cfg := sim.DefaultConfig()
		cfg.Scheduler = sim.NewFrameScheduler(nil)
		cfg.Logger = logging.Discard()
		ctrl := sim.NewController(cfg)
		agent := core.NewAgentPlan(core.Cell{}, core.Path{{Row: 0, Col: 0}, {Row: 0, Col: 1}}, nil)
		ctrl.Load(&core.Plan{Grid: core.NewGrid(1, 2), Agents: []core.AgentPlan{agent}})
		if tt.play {
			if err := ctrl.Play(); err != nil {
				t.Fatalf("%s: Play: %v", tt.name, err)
			}
		}

		var buf bytes.Buffer
		interrupt(ctrl, logging.New(&buf, logging.LevelInfo, ""))

		if got := ctrl.State(); got != tt.wantState {
			t.Errorf("%s: state = %v, want %v", tt.name, got, tt.wantState)
		}
		if got := strings.Contains(buf.String(), "[WARN] pause:"); got != tt.wantWarn {
			t.Errorf("%s: warning logged = %v, want %v\n%s", tt.name, got, tt.wantWarn, buf.String())
		}
	}
}
