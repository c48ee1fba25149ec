package orchestrator

import (
	"fmt"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
)

// Route selects the remote operation pair used to start and stop a session.
type Route int

const (
	// RouteDirect is the direct TCP forward pair, addressed by
	// (service name, config id).
	RouteDirect Route = iota
	// RouteProxy is the proxy forward pair, addressed by
	// (config id, namespace, service name, local port, remote address).
	RouteProxy
)

func (r Route) String() string {
	switch r {
	case RouteDirect:
		return "direct"
	case RouteProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// ResolveRoute is the routing rule. It is a pure, total function: service
// and pod workloads carrying TCP go direct, everything else that is routable
// goes through a proxy pod, and any other combination is unsupported.
func ResolveRoute(workload config.WorkloadType, protocol config.Protocol) (Route, error) {
	switch workload {
	case config.WorkloadService, config.WorkloadPod:
		switch protocol {
		case config.ProtocolTCP:
			return RouteDirect, nil
		case config.ProtocolUDP:
			return RouteProxy, nil
		}
	case config.WorkloadProxy:
		switch protocol {
		case config.ProtocolTCP, config.ProtocolUDP:
			return RouteProxy, nil
		}
	}
	return 0, fmt.Errorf("%w: workload_type=%q protocol=%q", gateway.ErrUnsupportedWorkload, workload, protocol)
}
