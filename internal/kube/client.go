package kube

import (
	"fmt"
	"os/user"
	"strings"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Important for various auth providers
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// clientFactory builds and caches clientsets per (kubeconfig, context) pair.
type clientFactory struct {
	mu      sync.Mutex
	clients map[string]clientEntry
}

type clientEntry struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config
}

func newClientFactory() *clientFactory {
	return &clientFactory{clients: make(map[string]clientEntry)}
}

// clientFor returns a clientset for the given context, honoring an explicit
// kubeconfig path when one is configured.
func (f *clientFactory) clientFor(kubeconfig, kubeContext string) (kubernetes.Interface, *rest.Config, error) {
	key := kubeconfig + "|" + kubeContext

	f.mu.Lock()
	defer f.mu.Unlock()

	if entry, ok := f.clients[key]; ok {
		return entry.clientset, entry.restConfig, nil
	}

	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get REST config for context %q: %w", kubeContext, err)
	}
	restConfig.Timeout = 30 * time.Second

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kubernetes clientset for context %q: %w", kubeContext, err)
	}

	f.clients[key] = clientEntry{clientset: clientset, restConfig: restConfig}
	return clientset, restConfig, nil
}

// ownerName returns the current username, lowercased and stripped to
// alphanumerics, for use in resource name prefixes.
func ownerName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	name := strings.ToLower(u.Username)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
