package kube

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"

	"fwdctl/internal/gateway"
)

func testGateway(clientset kubernetes.Interface) *KubeGateway {
	return &KubeGateway{
		owner:  "tester",
		table:  newForwardTable(),
		events: make(chan gateway.StateEvent, 4),
		newClient: func(kubeconfig, kubeContext string) (kubernetes.Interface, *rest.Config, error) {
			return clientset, &rest.Config{}, nil
		},
	}
}

func labeledPod(namespace, name, configID string) *corev1.Pod {
	lbls := map[string]string{"app": appLabel}
	if configID != "" {
		lbls[configIDLabel] = configID
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         namespace,
			Labels:            lbls,
			CreationTimestamp: metav1.NewTime(time.Now().Add(-time.Hour)),
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

func TestConfigIDFromLabels(t *testing.T) {
	assert.Nil(t, configIDFromLabels(nil))
	assert.Nil(t, configIDFromLabels(map[string]string{"app": appLabel}))
	assert.Nil(t, configIDFromLabels(map[string]string{configIDLabel: "abc"}))

	id := configIDFromLabels(map[string]string{configIDLabel: "7"})
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)
}

func TestOwnsName(t *testing.T) {
	g := testGateway(fake.NewSimpleClientset())

	assert.True(t, g.ownsName("fwdctl-forward-tester-3"))
	assert.True(t, g.ownsName("fwdctl-expose-tester-12"))
	assert.False(t, g.ownsName("fwdctl-forward-otheruser-3"))
	assert.False(t, g.ownsName("nginx"))
}

func TestProxyPodName(t *testing.T) {
	g := testGateway(fake.NewSimpleClientset())
	assert.Equal(t, "fwdctl-forward-tester-9", g.proxyPodName(9))
}

func TestListOwnedResources(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		labeledPod("default", "fwdctl-forward-tester-7", "7"),
		// Pre-labeling relay pod, only recognizable by name prefix.
		&corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{
				Name:              "fwdctl-forward-tester-3",
				Namespace:         "tools",
				CreationTimestamp: metav1.NewTime(time.Now().Add(-time.Minute)),
			},
			Status: corev1.PodStatus{Phase: corev1.PodPending},
		},
		// Unrelated pod, never listed.
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "nginx", Namespace: "default"}},
	)
	g := testGateway(clientset)

	groups, err := g.ListOwnedResources(context.Background(), gateway.ListResourcesParams{Context: "prod"})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, "default", groups[0].Namespace)
	require.Len(t, groups[0].Resources, 1)
	res := groups[0].Resources[0]
	assert.Equal(t, "fwdctl-forward-tester-7", res.Name)
	assert.Equal(t, "pod", res.ResourceType)
	require.NotNil(t, res.ConfigID)
	assert.Equal(t, int64(7), *res.ConfigID)
	assert.Equal(t, "Running", res.Status)
	assert.Equal(t, "1h", res.Age)

	assert.Equal(t, "tools", groups[1].Namespace)
	require.Len(t, groups[1].Resources, 1)
	assert.Nil(t, groups[1].Resources[0].ConfigID)
	assert.Equal(t, "Pending", groups[1].Resources[0].Status)
}

func TestDeleteResource(t *testing.T) {
	clientset := fake.NewSimpleClientset(labeledPod("default", "fwdctl-forward-tester-7", "7"))
	g := testGateway(clientset)

	err := g.DeleteResource(context.Background(), gateway.DeleteResourceParams{
		Context:      "prod",
		Namespace:    "default",
		ResourceType: "pod",
		Name:         "fwdctl-forward-tester-7",
	})
	require.NoError(t, err)

	_, err = clientset.CoreV1().Pods("default").Get(context.Background(), "fwdctl-forward-tester-7", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestDeleteResourceUnknownType(t *testing.T) {
	g := testGateway(fake.NewSimpleClientset())
	err := g.DeleteResource(context.Background(), gateway.DeleteResourceParams{
		ResourceType: "statefulset",
		Namespace:    "default",
		Name:         "x",
	})
	assert.ErrorContains(t, err, "unknown resource type")
}

func TestDeleteResourceMissingIsSuccess(t *testing.T) {
	g := testGateway(fake.NewSimpleClientset())
	err := g.DeleteResource(context.Background(), gateway.DeleteResourceParams{
		ResourceType: "pod",
		Namespace:    "default",
		Name:         "already-gone",
	})
	assert.NoError(t, err)
}

func TestCleanupResourcesOrphanedMode(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		labeledPod("default", "fwdctl-forward-tester-7", "7"),
		labeledPod("default", "fwdctl-forward-tester-9", "9"),
	)
	g := testGateway(clientset)

	summary, err := g.CleanupResources(context.Background(), gateway.CleanupParams{
		Context:  "prod",
		Mode:     gateway.CleanupOrphaned,
		KnownIDs: map[int64]struct{}{7: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 1 resources", summary)

	// The pod of the known config survives.
	_, err = clientset.CoreV1().Pods("default").Get(context.Background(), "fwdctl-forward-tester-7", metav1.GetOptions{})
	assert.NoError(t, err)
	_, err = clientset.CoreV1().Pods("default").Get(context.Background(), "fwdctl-forward-tester-9", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestCleanupResourcesAllMode(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		labeledPod("default", "fwdctl-forward-tester-7", "7"),
		labeledPod("default", "fwdctl-forward-tester-9", "9"),
	)
	g := testGateway(clientset)

	summary, err := g.CleanupResources(context.Background(), gateway.CleanupParams{
		Context:  "prod",
		Mode:     gateway.CleanupAll,
		KnownIDs: map[int64]struct{}{7: {}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully deleted 2 resources", summary)
}
