package kube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"fwdctl/pkg/logging"
)

// activeForward is one live SPDY tunnel. Closing stopChan tears it down.
type activeForward struct {
	key      string
	stopChan chan struct{}
	doneChan chan error
}

// forwardTable tracks live tunnels by key so stops can address them.
type forwardTable struct {
	mu       sync.Mutex
	forwards map[string]*activeForward
}

func newForwardTable() *forwardTable {
	return &forwardTable{forwards: make(map[string]*activeForward)}
}

func (t *forwardTable) add(fwd *activeForward) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forwards[fwd.key] = fwd
}

// remove takes a forward out of the table and returns it, or nil when no
// forward with that key is live.
func (t *forwardTable) remove(key string) *activeForward {
	t.mu.Lock()
	defer t.mu.Unlock()
	fwd, ok := t.forwards[key]
	if !ok {
		return nil
	}
	delete(t.forwards, key)
	return fwd
}

// removeIf removes a forward only if it is still the given one; a forward
// that died on its own must not evict a successor that reused the key.
func (t *forwardTable) removeIf(fwd *activeForward) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.forwards[fwd.key] == fwd {
		delete(t.forwards, fwd.key)
	}
}

func directKey(serviceName string, configID int64) string {
	return fmt.Sprintf("direct:%d:%s", configID, serviceName)
}

func proxyKey(configID int64) string {
	return fmt.Sprintf("proxy:%d", configID)
}

// resolveTargetPod resolves the pod a forward should attach to: the named
// pod itself, or a ready pod backing the named service.
func resolveTargetPod(ctx context.Context, clientset kubernetes.Interface, namespace, target string, isPod bool) (string, error) {
	if isPod {
		pod, err := clientset.CoreV1().Pods(namespace).Get(ctx, target, metav1.GetOptions{})
		if err != nil {
			return "", fmt.Errorf("failed to get pod %s/%s: %w", namespace, target, err)
		}
		if pod.Status.Phase != corev1.PodRunning {
			return "", fmt.Errorf("pod %s/%s is not running (phase %s)", namespace, target, pod.Status.Phase)
		}
		return pod.Name, nil
	}

	svc, err := clientset.CoreV1().Services(namespace).Get(ctx, target, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, target, err)
	}
	if len(svc.Spec.Selector) == 0 {
		return "", fmt.Errorf("service %s/%s has no selector, cannot resolve a backing pod", namespace, target)
	}

	selector := labels.SelectorFromSet(svc.Spec.Selector).String()
	pods, err := clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("failed to list pods for service %s/%s: %w", namespace, target, err)
	}

	var candidates []string
	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning || pod.DeletionTimestamp != nil {
			continue
		}
		if podReady(&pod) {
			candidates = append(candidates, pod.Name)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no ready pods found for service %s/%s", namespace, target)
	}
	sort.Strings(candidates)
	return candidates[0], nil
}

func podReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// startTunnel opens an SPDY port-forward to one pod and keeps it alive in a
// background goroutine until stopChan closes or the tunnel dies.
func startTunnel(clientset kubernetes.Interface, restConfig *rest.Config, namespace, podName, localAddress string, localPort, remotePort uint16, key string, table *forwardTable, onExit func()) error {
	req := clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(podName).
		SubResource("portforward")

	transport, upgrader, err := spdy.RoundTripperFor(restConfig)
	if err != nil {
		return fmt.Errorf("failed to create SPDY round tripper: %w", err)
	}
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, req.URL())

	if localAddress == "" {
		localAddress = "127.0.0.1"
	}
	ports := []string{fmt.Sprintf("%d:%d", localPort, remotePort)}
	stopChan := make(chan struct{}, 1)
	readyChan := make(chan struct{})

	pf, err := portforward.NewOnAddresses(dialer, []string{localAddress}, ports, stopChan, readyChan, io.Discard, io.Discard)
	if err != nil {
		return fmt.Errorf("failed to create port forwarder: %w", err)
	}

	fwd := &activeForward{key: key, stopChan: stopChan, doneChan: make(chan error, 1)}
	errChan := make(chan error, 1)
	go func() {
		errChan <- pf.ForwardPorts()
	}()

	select {
	case err := <-errChan:
		if err == nil {
			err = fmt.Errorf("port forward to pod %s/%s closed before becoming ready", namespace, podName)
		}
		return fmt.Errorf("failed to forward %s:%d -> %s/%s:%d: %w", localAddress, localPort, namespace, podName, remotePort, err)
	case <-readyChan:
	}

	table.add(fwd)
	go func() {
		err := <-errChan
		table.removeIf(fwd)
		if err != nil {
			logging.Error("Kube", err, "Port forward %s terminated", key)
		}
		fwd.doneChan <- err
		if onExit != nil {
			onExit()
		}
	}()

	logging.Info("Kube", "Forwarding %s:%d -> %s/%s:%d", localAddress, localPort, namespace, podName, remotePort)
	return nil
}

// stopTunnel closes a live tunnel by key. A missing tunnel is not an error:
// the desired state (no forward) already holds.
func stopTunnel(table *forwardTable, key string) bool {
	fwd := table.remove(key)
	if fwd == nil {
		logging.Warn("Kube", "No active forward for %s, treating stop as success", key)
		return false
	}
	close(fwd.stopChan)
	<-fwd.doneChan
	return true
}
