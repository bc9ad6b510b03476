package k8sclient

import (
	"context"
	"fmt"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// pollInterval is shortened in tests.
var pollInterval = 5 * time.Second

// LoadBalancerAddress polls a Service until its first load-balancer ingress
// reports a hostname or IP. Hostnames are preferred.
func (c *client) LoadBalancerAddress(ctx context.Context, namespace, name string, timeout time.Duration) (string, error) {
	logger := log.FromContext(ctx).WithName("k8sclient")

	var address string
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			logger.V(1).Info("service not readable yet", "namespace", namespace, "name", name, "error", err.Error())
			return false, nil
		}
		address = loadBalancerAddress(svc)
		return address != "", nil
	})
	if err != nil {
		return "", fmt.Errorf("timed out waiting for load balancer address of Service %s/%s: %w", namespace, name, err)
	}
	return address, nil
}

func loadBalancerAddress(svc *corev1.Service) string {
	ingress := svc.Status.LoadBalancer.Ingress
	if len(ingress) == 0 {
		return ""
	}
	if ingress[0].Hostname != "" {
		return ingress[0].Hostname
	}
	return ingress[0].IP
}

// FindLoadBalancerService returns the alphabetically first LoadBalancer Service.
func (c *client) FindLoadBalancerService(ctx context.Context, namespace string) (string, error) {
	services, err := c.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list services in %s: %w", namespace, err)
	}

	var names []string
	for _, svc := range services.Items {
		if svc.Spec.Type == corev1.ServiceTypeLoadBalancer {
			names = append(names, svc.Name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no LoadBalancer service found in namespace %s", namespace)
	}
	sort.Strings(names)
	return names[0], nil
}

// WaitForDeployment waits for a deployment to become ready.
func (c *client) WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return isDeploymentReady(deployment), nil
	})
	if err != nil {
		return fmt.Errorf("timed out waiting for Deployment %s/%s: %w", namespace, name, err)
	}
	return nil
}

func isDeploymentReady(deployment *appsv1.Deployment) bool {
	if deployment.Generation > deployment.Status.ObservedGeneration {
		return false
	}
	want := int32(1)
	if deployment.Spec.Replicas != nil {
		want = *deployment.Spec.Replicas
	}
	return deployment.Status.UpdatedReplicas >= want && deployment.Status.AvailableReplicas >= want
}
