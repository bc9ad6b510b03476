// Package ingress declares the NGINX ingress controller: a namespace and the
// objects of the nginx-ingress chart rendered into it with NGINX Plus
// disabled.
package ingress
