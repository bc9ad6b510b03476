// Package k8sclient wraps k8s.io/client-go for the operations the stack needs:
// server-side apply of unstructured objects, deletion by reference, discovery
// refresh after CRDs land and waiting on load-balancer and rollout status.
package k8sclient
