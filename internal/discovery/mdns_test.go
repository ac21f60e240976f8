package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "planner._warehouse-planner._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       5001,
		InfoFields: []string{"path=/api", "version=1", "junk"},
	}

	svc := fromEntry(entry)
	if svc.Port != 5001 || svc.Info["version"] != "1" {
		t.Errorf("service = %+v", svc)
	}
	if _, ok := svc.Info["junk"]; ok {
		t.Error("TXT record without '=' should be skipped")
	}
	if got, want := svc.URL(), "http://192.168.1.20:5001/api"; got != want {
		t.Errorf("URL = %q, want %q", got, want)
	}
}

func TestStopNilAnnouncer(t *testing.T) {
	var a *Announcer
	if err := a.Stop(); err != nil {
		t.Errorf("Stop on nil announcer = %v", err)
	}
}
