package kube

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"fwdctl/internal/gateway"
	"fwdctl/pkg/logging"
)

const ownedSelector = "app=" + appLabel

// configIDFromLabels reads the owning configuration id from a resource's
// labels; nil when the label is missing or unparseable.
func configIDFromLabels(lbls map[string]string) *int64 {
	raw, ok := lbls[configIDLabel]
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// ownsName reports whether a resource name matches one of this user's
// prefixes. Prefix matching catches resources created before labeling, or
// whose labels were stripped.
func (g *KubeGateway) ownsName(name string) bool {
	for _, prefix := range g.namePrefixes() {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// ListOwnedResources lists every resource this tool created in one context,
// grouped by namespace. Only resources labeled app=fwdctl or named with this
// user's prefixes are returned; orphan classification is left to the caller.
func (g *KubeGateway) ListOwnedResources(ctx context.Context, params gateway.ListResourcesParams) ([]gateway.NamespaceGroup, error) {
	clientset, _, err := g.newClient(params.Kubeconfig, params.Context)
	if err != nil {
		return nil, err
	}

	byNamespace := make(map[string][]gateway.Resource)
	add := func(res gateway.Resource) {
		byNamespace[res.Namespace] = append(byNamespace[res.Namespace], res)
	}

	pods, err := clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{LabelSelector: ownedSelector})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in context %q: %w", params.Context, err)
	}
	for i := range pods.Items {
		pod := &pods.Items[i]
		add(gateway.Resource{
			Namespace:    pod.Namespace,
			ResourceType: "pod",
			Name:         pod.Name,
			ConfigID:     configIDFromLabels(pod.Labels),
			Age:          FormatAge(pod.CreationTimestamp.Time),
			Status:       podStatus(pod),
		})
	}

	// Relay pods created by older versions carry no app label; pick them up
	// by name prefix.
	allPods, err := clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err == nil {
		seen := make(map[string]bool, len(pods.Items))
		for _, pod := range pods.Items {
			seen[pod.Namespace+"/"+pod.Name] = true
		}
		for i := range allPods.Items {
			pod := &allPods.Items[i]
			if seen[pod.Namespace+"/"+pod.Name] || !g.ownsName(pod.Name) {
				continue
			}
			add(gateway.Resource{
				Namespace:    pod.Namespace,
				ResourceType: "pod",
				Name:         pod.Name,
				ConfigID:     configIDFromLabels(pod.Labels),
				Age:          FormatAge(pod.CreationTimestamp.Time),
				Status:       podStatus(pod),
			})
		}
	}

	deployments, err := clientset.AppsV1().Deployments(metav1.NamespaceAll).List(ctx, metav1.ListOptions{LabelSelector: ownedSelector})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments in context %q: %w", params.Context, err)
	}
	for i := range deployments.Items {
		dep := &deployments.Items[i]
		add(gateway.Resource{
			Namespace:    dep.Namespace,
			ResourceType: "deployment",
			Name:         dep.Name,
			ConfigID:     configIDFromLabels(dep.Labels),
			Age:          FormatAge(dep.CreationTimestamp.Time),
			Status:       deploymentStatus(dep),
		})
	}

	services, err := clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{LabelSelector: ownedSelector})
	if err != nil {
		return nil, fmt.Errorf("failed to list services in context %q: %w", params.Context, err)
	}
	for i := range services.Items {
		svc := &services.Items[i]
		add(gateway.Resource{
			Namespace:    svc.Namespace,
			ResourceType: "service",
			Name:         svc.Name,
			ConfigID:     configIDFromLabels(svc.Labels),
			Age:          FormatAge(svc.CreationTimestamp.Time),
			Status:       svc.Spec.ClusterIP,
		})
	}

	ingresses, err := clientset.NetworkingV1().Ingresses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{LabelSelector: ownedSelector})
	if err != nil {
		return nil, fmt.Errorf("failed to list ingresses in context %q: %w", params.Context, err)
	}
	for i := range ingresses.Items {
		ing := &ingresses.Items[i]
		add(gateway.Resource{
			Namespace:    ing.Namespace,
			ResourceType: "ingress",
			Name:         ing.Name,
			ConfigID:     configIDFromLabels(ing.Labels),
			Age:          FormatAge(ing.CreationTimestamp.Time),
			Status:       ingressHosts(ing),
		})
	}

	namespaces := make([]string, 0, len(byNamespace))
	for ns := range byNamespace {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	groups := make([]gateway.NamespaceGroup, 0, len(namespaces))
	for _, ns := range namespaces {
		resources := byNamespace[ns]
		sort.Slice(resources, func(i, j int) bool {
			if resources[i].ResourceType != resources[j].ResourceType {
				return resources[i].ResourceType < resources[j].ResourceType
			}
			return resources[i].Name < resources[j].Name
		})
		groups = append(groups, gateway.NamespaceGroup{Namespace: ns, Resources: resources})
	}
	return groups, nil
}

// DeleteResource deletes one resource. When the resource backs a live
// forward of a known configuration, the tunnel is closed first so the
// deletion does not leave a dangling local listener.
func (g *KubeGateway) DeleteResource(ctx context.Context, params gateway.DeleteResourceParams) error {
	clientset, _, err := g.newClient(params.Kubeconfig, params.Context)
	if err != nil {
		return err
	}

	if params.ConfigID != nil && params.ResourceType == "pod" {
		stopTunnel(g.table, proxyKey(*params.ConfigID))
	}

	grace := int64(0)
	opts := metav1.DeleteOptions{GracePeriodSeconds: &grace}

	switch params.ResourceType {
	case "pod":
		err = clientset.CoreV1().Pods(params.Namespace).Delete(ctx, params.Name, opts)
	case "deployment":
		err = clientset.AppsV1().Deployments(params.Namespace).Delete(ctx, params.Name, opts)
	case "service":
		err = clientset.CoreV1().Services(params.Namespace).Delete(ctx, params.Name, opts)
	case "ingress":
		err = clientset.NetworkingV1().Ingresses(params.Namespace).Delete(ctx, params.Name, opts)
	default:
		return fmt.Errorf("unknown resource type %q", params.ResourceType)
	}
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s/%s: %w", params.ResourceType, params.Namespace, params.Name, err)
	}
	return nil
}

// CleanupResources deletes this tool's resources in one context in bulk and
// returns a summary with the deleted count.
func (g *KubeGateway) CleanupResources(ctx context.Context, params gateway.CleanupParams) (string, error) {
	groups, err := g.ListOwnedResources(ctx, gateway.ListResourcesParams{
		Context:    params.Context,
		Kubeconfig: params.Kubeconfig,
	})
	if err != nil {
		return "", err
	}

	clientset, _, err := g.newClient(params.Kubeconfig, params.Context)
	if err != nil {
		return "", err
	}

	orphaned := func(res gateway.Resource) bool {
		if res.ConfigID == nil {
			return true
		}
		_, known := params.KnownIDs[*res.ConfigID]
		return !known
	}

	deleted, failed := 0, 0
	for _, group := range groups {
		for _, res := range group.Resources {
			if params.Mode == gateway.CleanupOrphaned && !orphaned(res) {
				continue
			}
			if err := g.deleteOne(ctx, clientset, res); err != nil {
				failed++
				logging.Error("Kube", err, "Cleanup of %s %s/%s failed", res.ResourceType, group.Namespace, res.Name)
				continue
			}
			deleted++
		}
	}

	if failed > 0 {
		return fmt.Sprintf("Deleted %d resources with %d errors", deleted, failed), nil
	}
	return fmt.Sprintf("Successfully deleted %d resources", deleted), nil
}

func (g *KubeGateway) deleteOne(ctx context.Context, clientset kubernetes.Interface, res gateway.Resource) error {
	if res.ConfigID != nil && res.ResourceType == "pod" {
		stopTunnel(g.table, proxyKey(*res.ConfigID))
	}

	grace := int64(0)
	opts := metav1.DeleteOptions{GracePeriodSeconds: &grace}

	var err error
	switch res.ResourceType {
	case "pod":
		err = clientset.CoreV1().Pods(res.Namespace).Delete(ctx, res.Name, opts)
	case "deployment":
		err = clientset.AppsV1().Deployments(res.Namespace).Delete(ctx, res.Name, opts)
	case "service":
		err = clientset.CoreV1().Services(res.Namespace).Delete(ctx, res.Name, opts)
	case "ingress":
		err = clientset.NetworkingV1().Ingresses(res.Namespace).Delete(ctx, res.Name, opts)
	default:
		return fmt.Errorf("unknown resource type %q", res.ResourceType)
	}
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}

func podStatus(pod *corev1.Pod) string {
	if pod.DeletionTimestamp != nil {
		return "Terminating"
	}
	return string(pod.Status.Phase)
}

func deploymentStatus(dep *appsv1.Deployment) string {
	desired := int32(1)
	if dep.Spec.Replicas != nil {
		desired = *dep.Spec.Replicas
	}
	return fmt.Sprintf("%d/%d", dep.Status.ReadyReplicas, desired)
}

func ingressHosts(ing *networkingv1.Ingress) string {
	var hosts []string
	for _, rule := range ing.Spec.Rules {
		if rule.Host != "" {
			hosts = append(hosts, rule.Host)
		}
	}
	if len(hosts) == 0 {
		return "*"
	}
	return strings.Join(hosts, ",")
}
