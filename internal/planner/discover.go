package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/elektrokombinacija/warehouse-sim/internal/discovery"
)

// Discover looks up the planning service over mDNS and returns its base URL.
// An empty service name means discovery.PlannerService.
func Discover(ctx context.Context, service string, timeout time.Duration) (string, error) {
	if service == "" {
		service = discovery.PlannerService
	}
	svc, err := discovery.Lookup(ctx, service, timeout)
	if err != nil {
		return "", fmt.Errorf("discover planner: %w", err)
	}
	if _, ok := svc.Info["path"]; !ok {
		// The service mounts its API under /api unless it says otherwise.
		svc.Info["path"] = "/api"
	}
	return svc.URL(), nil
}
