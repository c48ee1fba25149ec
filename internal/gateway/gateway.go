package gateway

import (
	"context"

	"fwdctl/internal/config"
)

// Gateway is the single seam between the session logic and the cluster
// backend. Every operation is one remote call: the gateway performs no
// retries and no batching, and surfaces backend error messages verbatim.
type Gateway interface {
	// StartForward starts a direct TCP forward for one configuration.
	StartForward(ctx context.Context, params DirectForwardParams) error

	// StopForward stops a direct TCP forward addressed by service name and
	// configuration id.
	StopForward(ctx context.Context, params DirectStopParams) error

	// StartProxyForward starts a proxy-pod backed forward (UDP traffic, or
	// proxy workloads targeting an arbitrary remote address).
	StartProxyForward(ctx context.Context, params ProxyForwardParams) error

	// StopProxyForward stops a proxy forward.
	StopProxyForward(ctx context.Context, params ProxyStopParams) error

	// ListOwnedResources lists the cluster resources created by this tool
	// for one context, grouped by namespace. Orphan classification is the
	// caller's job; resources are returned with their config id label only.
	ListOwnedResources(ctx context.Context, params ListResourcesParams) ([]NamespaceGroup, error)

	// DeleteResource deletes exactly one remote resource.
	DeleteResource(ctx context.Context, params DeleteResourceParams) error

	// CleanupResources deletes resources in bulk for one context and returns
	// the backend's human-readable summary containing a deleted count.
	CleanupResources(ctx context.Context, params CleanupParams) (string, error)
}

// DirectForwardParams addresses a direct TCP forward start.
type DirectForwardParams struct {
	Config config.Config
}

// DirectStopParams addresses a direct TCP forward stop.
type DirectStopParams struct {
	ServiceName string
	ConfigID    int64
}

// ProxyForwardParams addresses a proxy forward start.
type ProxyForwardParams struct {
	Config config.Config
}

// ProxyStopParams addresses a proxy forward stop.
type ProxyStopParams struct {
	ConfigID      int64
	Namespace     string
	ServiceName   string
	LocalPort     uint16
	RemoteAddress string
	Protocol      config.Protocol
	Context       string
	Kubeconfig    string
}

// ListResourcesParams selects the context for a resource listing.
type ListResourcesParams struct {
	Context    string
	Kubeconfig string
}

// DeleteResourceParams addresses a single remote resource.
type DeleteResourceParams struct {
	Context      string
	Namespace    string
	ResourceType string
	Name         string
	ConfigID     *int64
	Kubeconfig   string
}

// CleanupMode selects which resources a bulk cleanup removes.
type CleanupMode string

const (
	CleanupOrphaned CleanupMode = "orphaned"
	CleanupAll      CleanupMode = "all"
)

// CleanupParams addresses a bulk cleanup for one context. KnownIDs is the
// set of configuration ids currently defined for the context; orphaned mode
// deletes only resources whose id label is absent or outside this set.
type CleanupParams struct {
	Context    string
	Kubeconfig string
	Mode       CleanupMode
	KnownIDs   map[int64]struct{}
}

// Resource is a cluster object discovered during a sweep. Orphaned is
// computed against the current configuration snapshot, never stored remotely.
type Resource struct {
	Context      string
	Namespace    string
	ResourceType string
	Name         string
	ConfigID     *int64
	Orphaned     bool
	Age          string
	Status       string
}

// NamespaceGroup is the per-namespace slice of discovered resources.
type NamespaceGroup struct {
	Namespace string
	Resources []Resource
}

// StateEvent is a push notification that a session's process state changed.
type StateEvent struct {
	ConfigID int64
	Running  bool
}
