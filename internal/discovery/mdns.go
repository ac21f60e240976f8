// Package discovery finds warehouse services on the local network over mDNS.
// The simulator announces its snapshot stream; clients look up the planning
// service or a running simulator.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/elektrokombinacija/warehouse-sim/internal/logging"
)

const (
	PlannerService = "_warehouse-planner._tcp"
	StreamService  = "_warehouse-sim._tcp"
)

// Service is one discovered endpoint.
type Service struct {
	Name string
	Addr net.IP
	Port int
	// TXT records as key=value
	Info map[string]string
}

// URL renders the service as an http URL rooted at the "path" TXT record.
func (s Service) URL() string {
	host := net.JoinHostPort(s.Addr.String(), fmt.Sprint(s.Port))
	return "http://" + host + s.Info["path"]
}

// Announcer advertises a local service until Stop.
type Announcer struct {
	server *mdns.Server
}

// Announce starts advertising instance under service on port. info entries
// are key=value TXT records.
func Announce(instance, service string, port int, info map[string]string) (*Announcer, error) {
	var ips []net.IP
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	if len(ips) == 0 {
		ips, _ = net.LookupIP("localhost")
	}

	var txt []string
	for k, v := range info {
		txt = append(txt, k+"="+v)
	}

	zone, err := mdns.NewMDNSService(instance, service, "", "", port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}

	logging.Default().Infof("mDNS: announcing %s on %s port %d", instance, service, port)
	return &Announcer{server: server}, nil
}

// Stop withdraws the announcement.
func (a *Announcer) Stop() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Lookup queries for service and returns the first IPv4 answer. It waits at
// most timeout, or until ctx is done.
func Lookup(ctx context.Context, service string, timeout time.Duration) (Service, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan Service, 1)
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			select {
			case found <- fromEntry(entry):
			default:
			}
		}
	}()

	params := mdns.DefaultParams(service)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case svc := <-found:
		return svc, nil
	case <-ctx.Done():
		return Service{}, ctx.Err()
	case err := <-queryErr:
		<-drained
		select {
		case svc := <-found:
			return svc, nil
		default:
		}
		if err != nil {
			return Service{}, fmt.Errorf("mDNS query %s: %w", service, err)
		}
		return Service{}, fmt.Errorf("mDNS query %s: no answer within %s", service, timeout)
	}
}

func fromEntry(entry *mdns.ServiceEntry) Service {
	svc := Service{
		Name: entry.Name,
		Addr: entry.AddrV4,
		Port: entry.Port,
		Info: make(map[string]string),
	}
	for _, field := range entry.InfoFields {
		if k, v, ok := strings.Cut(field, "="); ok {
			svc.Info[k] = v
		}
	}
	return svc
}
