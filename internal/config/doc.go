// Package config defines the stack configuration read from nginx-demo.yaml.
//
// The [Config] struct describes the ingress controller installation, the
// production apps deployed behind it, the DNS provider used to bind app
// hosts to the controller's load balancer and the backend that stores the
// stack state. [LoadFile] parses, applies environment overrides and
// defaults, and validates in one step.
package config
