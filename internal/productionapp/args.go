package productionapp

import (
	"errors"
	"fmt"
	"net"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/ptr"
)

// Versions of the component. v1 serves on 8080 and never binds DNS; v2 serves
// on 80 and may bind a DNS record to the load balancer.
const (
	V1 = "v1"
	V2 = "v2"
)

// Defaults shared by both versions.
const (
	DefaultDomain       = "pulumi-demos.net"
	DefaultTargetPort   = int32(8080)
	DefaultIngressClass = "nginx"
	DefaultTTL          = int64(300)
	PortName            = "http"
)

type versionDefaults struct {
	replicas    int32
	servicePort int32
	dns         bool
}

var versions = map[string]versionDefaults{
	V1: {replicas: 5, servicePort: 8080, dns: false},
	V2: {replicas: 3, servicePort: 80, dns: true},
}

// Args are the inputs of a production app. Zero values take the defaults of
// Version.
type Args struct {
	Image    string
	Replicas *int32
	Domain   string

	// TargetPort is the container port, exposed under the name "http".
	TargetPort int32

	// LoadBalancer is the hostname or IPv4 address of the ingress
	// controller's load balancer. Hostnames get a CNAME, addresses an A record.
	LoadBalancer string

	Version      string
	IngressClass string

	// DNS binds a record for the app's host in Zone. Only v2 supports it.
	DNS  bool
	Zone string
	TTL  int64

	// Labels are added to object metadata. Selectors only use name=<app>.
	Labels map[string]string
}

// withDefaults returns a copy of a with every unset field defaulted.
func (a Args) withDefaults() Args {
	if a.Version == "" {
		a.Version = V2
	}
	d := versions[a.Version]
	if a.Replicas == nil {
		a.Replicas = ptr.Int32(d.replicas)
	}
	if a.Domain == "" {
		a.Domain = DefaultDomain
	}
	if a.TargetPort == 0 {
		a.TargetPort = DefaultTargetPort
	}
	if a.IngressClass == "" {
		a.IngressClass = DefaultIngressClass
	}
	if a.Zone == "" {
		a.Zone = a.Domain
	}
	if a.TTL == 0 {
		a.TTL = DefaultTTL
	}
	return a
}

func (a Args) validate(name string) error {
	var errs []error
	for _, msg := range validation.IsDNS1123Label(name) {
		errs = append(errs, fmt.Errorf("name %q: %s", name, msg))
	}
	if a.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	d, ok := versions[a.Version]
	if !ok {
		errs = append(errs, fmt.Errorf("unknown version %q (want %s or %s)", a.Version, V1, V2))
	}
	if a.Replicas != nil && *a.Replicas < 0 {
		errs = append(errs, fmt.Errorf("replicas must not be negative, got %d", *a.Replicas))
	}
	if a.TargetPort < 1 || a.TargetPort > 65535 {
		errs = append(errs, fmt.Errorf("target port %d out of range", a.TargetPort))
	}
	if a.DNS && ok && !d.dns {
		errs = append(errs, fmt.Errorf("version %s does not support DNS records", a.Version))
	}
	if a.DNS && ok && d.dns {
		if a.LoadBalancer == "" {
			errs = append(errs, errors.New("load balancer address is required for DNS records"))
		} else if ip := net.ParseIP(a.LoadBalancer); ip != nil && ip.To4() == nil {
			errs = append(errs, fmt.Errorf("load balancer address %s is IPv6; only hostnames and IPv4 addresses can be bound", a.LoadBalancer))
		}
	}
	return errors.Join(errs...)
}

// ServicePort returns the Service port of version, 0 if unknown.
func ServicePort(version string) int32 {
	return versions[version].servicePort
}

// SupportsDNS reports whether version can bind a DNS record.
func SupportsDNS(version string) bool {
	return versions[version].dns
}
