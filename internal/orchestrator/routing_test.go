package orchestrator

import (
	"errors"
	"testing"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
)

func TestResolveRoute(t *testing.T) {
	tests := []struct {
		name     string
		workload config.WorkloadType
		protocol config.Protocol
		want     Route
		wantErr  bool
	}{
		{"service tcp is direct", config.WorkloadService, config.ProtocolTCP, RouteDirect, false},
		{"pod tcp is direct", config.WorkloadPod, config.ProtocolTCP, RouteDirect, false},
		{"service udp goes through the relay", config.WorkloadService, config.ProtocolUDP, RouteProxy, false},
		{"pod udp goes through the relay", config.WorkloadPod, config.ProtocolUDP, RouteProxy, false},
		{"proxy tcp goes through the relay", config.WorkloadProxy, config.ProtocolTCP, RouteProxy, false},
		{"proxy udp goes through the relay", config.WorkloadProxy, config.ProtocolUDP, RouteProxy, false},
		{"expose tcp is unsupported", config.WorkloadExpose, config.ProtocolTCP, 0, true},
		{"unknown workload is unsupported", config.WorkloadType("job"), config.ProtocolTCP, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRoute(tt.workload, tt.protocol)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if !errors.Is(err, gateway.ErrUnsupportedWorkload) {
					t.Errorf("error should wrap ErrUnsupportedWorkload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveRoute() = %v, want %v", got, tt.want)
			}
		})
	}
}
