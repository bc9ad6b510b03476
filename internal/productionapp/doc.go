// Package productionapp declares a web workload exposed through the ingress
// controller: a Namespace, Deployment, Service and Ingress sharing the
// selector label name=<app>, plus an optional DNS record pointing the app's
// host at the controller's load balancer: a CNAME for a hostname, an A record
// for an IPv4 address.
package productionapp
