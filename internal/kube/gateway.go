package kube

import (
	"context"
	"fmt"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"fwdctl/internal/config"
	"fwdctl/internal/gateway"
	"fwdctl/pkg/logging"
)

const (
	// appLabel marks every cluster resource created by this tool.
	appLabel = "fwdctl"

	// configIDLabel carries the owning configuration's id on created
	// resources, so sweeps can classify them.
	configIDLabel = "config_id"

	proxyPodImage     = "ghcr.io/hcavarsan/kftray-server:latest"
	proxyReadyTimeout = 60 * time.Second

	forwardPodPrefix = "forward"
	exposePodPrefix  = "expose"
)

// KubeGateway is the production gateway: every operation is one set of
// Kubernetes API calls through client-go, with no retries and no batching.
type KubeGateway struct {
	owner   string
	factory *clientFactory
	table   *forwardTable
	events  chan gateway.StateEvent

	// newClient is overridable in tests.
	newClient func(kubeconfig, kubeContext string) (kubernetes.Interface, *rest.Config, error)
}

// NewGateway creates a gateway that owns resources named for the current
// user.
func NewGateway() *KubeGateway {
	factory := newClientFactory()
	return &KubeGateway{
		owner:     ownerName(),
		factory:   factory,
		table:     newForwardTable(),
		events:    make(chan gateway.StateEvent, 64),
		newClient: factory.clientFor,
	}
}

// Events exposes the push channel of session state changes. Events are
// emitted when a live tunnel dies on its own; the channel is buffered and
// drops on overflow rather than blocking a teardown path.
func (g *KubeGateway) Events() <-chan gateway.StateEvent {
	return g.events
}

func (g *KubeGateway) emit(ev gateway.StateEvent) {
	select {
	case g.events <- ev:
	default:
		logging.Warn("Kube", "State event channel full, dropping event for config %d", ev.ConfigID)
	}
}

// proxyPodName builds the deterministic, user-scoped name of the proxy pod
// backing one configuration.
func (g *KubeGateway) proxyPodName(configID int64) string {
	return fmt.Sprintf("%s-%s-%s-%d", appLabel, forwardPodPrefix, g.owner, configID)
}

// namePrefixes returns the resource name prefixes this user's gateway owns.
func (g *KubeGateway) namePrefixes() []string {
	return []string{
		fmt.Sprintf("%s-%s-%s-", appLabel, forwardPodPrefix, g.owner),
		fmt.Sprintf("%s-%s-%s-", appLabel, exposePodPrefix, g.owner),
	}
}

// StartForward starts a direct TCP forward to a service's backing pod or a
// named pod.
func (g *KubeGateway) StartForward(ctx context.Context, params gateway.DirectForwardParams) error {
	cfg := params.Config

	clientset, restConfig, err := g.newClient(cfg.Kubeconfig, cfg.Context)
	if err != nil {
		return err
	}

	podName, err := resolveTargetPod(ctx, clientset, cfg.Namespace, cfg.TargetName(), cfg.WorkloadType == config.WorkloadPod)
	if err != nil {
		return err
	}

	key := directKey(cfg.Service, cfg.ID)
	onExit := func() { g.emit(gateway.StateEvent{ConfigID: cfg.ID, Running: false}) }
	return startTunnel(clientset, restConfig, cfg.Namespace, podName, cfg.LocalAddress, cfg.LocalPort, cfg.RemotePort, key, g.table, onExit)
}

// StopForward stops a direct forward. A forward that is already gone counts
// as stopped.
func (g *KubeGateway) StopForward(ctx context.Context, params gateway.DirectStopParams) error {
	stopTunnel(g.table, directKey(params.ServiceName, params.ConfigID))
	return nil
}

// StartProxyForward creates the relay pod for one configuration, waits for
// it to become ready, then forwards to it. UDP traffic and arbitrary remote
// addresses both go through the relay.
func (g *KubeGateway) StartProxyForward(ctx context.Context, params gateway.ProxyForwardParams) error {
	cfg := params.Config

	clientset, restConfig, err := g.newClient(cfg.Kubeconfig, cfg.Context)
	if err != nil {
		return err
	}

	remoteAddress := cfg.RemoteAddress
	if remoteAddress == "" {
		remoteAddress = cfg.Service
	}

	podName := g.proxyPodName(cfg.ID)
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: cfg.Namespace,
			Labels: map[string]string{
				"app":         appLabel,
				configIDLabel: strconv.FormatInt(cfg.ID, 10),
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:  "relay",
					Image: proxyPodImage,
					Env: []corev1.EnvVar{
						{Name: "LOCAL_PORT", Value: strconv.Itoa(int(cfg.RemotePort))},
						{Name: "REMOTE_ADDRESS", Value: remoteAddress},
						{Name: "REMOTE_PORT", Value: strconv.Itoa(int(cfg.RemotePort))},
						{Name: "PROXY_TYPE", Value: string(cfg.Protocol)},
					},
					Resources: corev1.ResourceRequirements{
						Limits: corev1.ResourceList{
							corev1.ResourceCPU:    resource.MustParse("100m"),
							corev1.ResourceMemory: resource.MustParse("200Mi"),
						},
					},
				},
			},
		},
	}

	if _, err := clientset.CoreV1().Pods(cfg.Namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		if !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create relay pod %s/%s: %w", cfg.Namespace, podName, err)
		}
		logging.Warn("Kube", "Relay pod %s/%s already exists, reusing it", cfg.Namespace, podName)
	}

	if err := g.waitPodReady(ctx, clientset, cfg.Namespace, podName); err != nil {
		// A relay that never came up is garbage; remove it so it does not
		// linger as an orphan.
		g.deletePod(context.Background(), clientset, cfg.Namespace, podName)
		return err
	}

	key := proxyKey(cfg.ID)
	onExit := func() { g.emit(gateway.StateEvent{ConfigID: cfg.ID, Running: false}) }
	if err := startTunnel(clientset, restConfig, cfg.Namespace, podName, cfg.LocalAddress, cfg.LocalPort, cfg.RemotePort, key, g.table, onExit); err != nil {
		g.deletePod(context.Background(), clientset, cfg.Namespace, podName)
		return err
	}
	return nil
}

// StopProxyForward closes the tunnel and deletes the relay pod.
func (g *KubeGateway) StopProxyForward(ctx context.Context, params gateway.ProxyStopParams) error {
	stopTunnel(g.table, proxyKey(params.ConfigID))

	clientset, _, err := g.newClient(params.Kubeconfig, params.Context)
	if err != nil {
		return err
	}
	g.deletePod(ctx, clientset, params.Namespace, g.proxyPodName(params.ConfigID))
	return nil
}

func (g *KubeGateway) waitPodReady(ctx context.Context, clientset kubernetes.Interface, namespace, podName string) error {
	waitCtx, cancel := context.WithTimeout(ctx, proxyReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		pod, err := clientset.CoreV1().Pods(namespace).Get(waitCtx, podName, metav1.GetOptions{})
		if err == nil && pod.Status.Phase == corev1.PodRunning && podReady(pod) {
			return nil
		}
		if err == nil && pod.Status.Phase == corev1.PodFailed {
			return fmt.Errorf("relay pod %s/%s failed to start", namespace, podName)
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("relay pod %s/%s did not become ready within %s", namespace, podName, proxyReadyTimeout)
		case <-ticker.C:
		}
	}
}

func (g *KubeGateway) deletePod(ctx context.Context, clientset kubernetes.Interface, namespace, podName string) {
	grace := int64(0)
	err := clientset.CoreV1().Pods(namespace).Delete(ctx, podName, metav1.DeleteOptions{GracePeriodSeconds: &grace})
	if err != nil && !apierrors.IsNotFound(err) {
		logging.Error("Kube", err, "Failed to delete pod %s/%s", namespace, podName)
	}
}
