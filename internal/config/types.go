package config

import (
	"fmt"
	"strings"
)

// WorkloadType selects how a configuration's traffic reaches the cluster.
type WorkloadType string

const (
	WorkloadService WorkloadType = "service"
	WorkloadPod     WorkloadType = "pod"
	WorkloadProxy   WorkloadType = "proxy"
	WorkloadExpose  WorkloadType = "expose"
)

// Protocol is the transport protocol of the forwarded traffic.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Config is a persisted, user-authored port-forward configuration.
// The ID is assigned by the store on insert.
type Config struct {
	ID            int64        `yaml:"id,omitempty"`
	Service       string       `yaml:"service"`
	Namespace     string       `yaml:"namespace"`
	LocalPort     uint16       `yaml:"local_port"`
	RemotePort    uint16       `yaml:"remote_port"`
	Context       string       `yaml:"context"`
	WorkloadType  WorkloadType `yaml:"workload_type"`
	Protocol      Protocol     `yaml:"protocol"`
	RemoteAddress string       `yaml:"remote_address,omitempty"`
	LocalAddress  string       `yaml:"local_address,omitempty"`
	Alias         string       `yaml:"alias,omitempty"`
	DomainEnabled bool         `yaml:"domain_enabled,omitempty"`
	Kubeconfig    string       `yaml:"kubeconfig,omitempty"`
	Target        string       `yaml:"target,omitempty"`
}

// DisplayName returns the alias when set, otherwise "service:localPort".
func (c Config) DisplayName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return fmt.Sprintf("%s:%d", c.Service, c.LocalPort)
}

// TargetName returns the resource the forward attaches to: the explicit
// target for pod workloads, otherwise the service name.
func (c Config) TargetName() string {
	if c.WorkloadType == WorkloadPod && c.Target != "" {
		return c.Target
	}
	return c.Service
}

// Validate checks that the configuration is complete enough to act on.
func (c Config) Validate() error {
	var problems []string

	if c.Service == "" && c.Target == "" {
		problems = append(problems, "service or target is required")
	}
	if c.Namespace == "" {
		problems = append(problems, "namespace is required")
	}
	if c.Context == "" {
		problems = append(problems, "context is required")
	}
	if c.LocalPort == 0 {
		problems = append(problems, "local_port must be set")
	}
	if c.RemotePort == 0 && c.WorkloadType != WorkloadProxy {
		problems = append(problems, "remote_port must be set")
	}

	switch c.WorkloadType {
	case WorkloadService, WorkloadPod, WorkloadProxy, WorkloadExpose:
	default:
		problems = append(problems, fmt.Sprintf("unknown workload_type %q", c.WorkloadType))
	}

	switch c.Protocol {
	case ProtocolTCP, ProtocolUDP:
	default:
		problems = append(problems, fmt.Sprintf("unknown protocol %q", c.Protocol))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
