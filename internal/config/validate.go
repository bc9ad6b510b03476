package config

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ValidAppVersions lists the supported production app versions.
var ValidAppVersions = map[string]bool{
	AppVersionV1: true,
	AppVersionV2: true,
}

// ValidDNSProviders lists the supported DNS providers. Empty disables DNS.
var ValidDNSProviders = map[string]bool{
	"":                    true,
	DNSProviderRoute53:    true,
	DNSProviderCloudflare: true,
}

// ValidStateBackends lists the supported state backends.
var ValidStateBackends = map[string]bool{
	StateBackendLocal: true,
	StateBackendS3:    true,
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Stack == "" {
		errs = append(errs, fmt.Errorf("stack is required"))
	} else if msgs := validation.IsDNS1123Label(c.Stack); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("stack %q: %s", c.Stack, strings.Join(msgs, "; ")))
	}

	errs = append(errs, c.validateController()...)
	errs = append(errs, c.validateApps()...)
	errs = append(errs, c.validateDNS()...)
	errs = append(errs, c.validateState()...)

	return errors.Join(errs...)
}

func (c *Config) validateController() []error {
	var errs []error
	if msgs := validation.IsDNS1123Label(c.Controller.Namespace); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("controller.namespace %q: %s", c.Controller.Namespace, strings.Join(msgs, "; ")))
	}
	if c.Controller.Release == "" {
		errs = append(errs, fmt.Errorf("controller.release is required"))
	}
	if !strings.HasPrefix(c.Controller.KubeVersion, "v") {
		errs = append(errs, fmt.Errorf("controller.kube_version %q must start with 'v'", c.Controller.KubeVersion))
	}
	if c.Controller.WaitTimeout < 0 {
		errs = append(errs, fmt.Errorf("controller.wait_timeout must not be negative"))
	}
	return errs
}

func (c *Config) validateApps() []error {
	var errs []error
	seen := make(map[string]bool, len(c.Apps))

	for i, app := range c.Apps {
		field := fmt.Sprintf("apps[%d]", i)
		if app.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", field))
		} else {
			if msgs := validation.IsDNS1123Label(app.Name); len(msgs) > 0 {
				errs = append(errs, fmt.Errorf("%s.name %q: %s", field, app.Name, strings.Join(msgs, "; ")))
			}
			if seen[app.Name] {
				errs = append(errs, fmt.Errorf("%s.name %q is declared twice", field, app.Name))
			}
			seen[app.Name] = true
		}
		if app.Image == "" {
			errs = append(errs, fmt.Errorf("%s.image is required", field))
		}
		if !ValidAppVersions[app.Version] {
			errs = append(errs, fmt.Errorf("%s.version %q: must be one of v1, v2", field, app.Version))
		}
		if app.Replicas != nil && *app.Replicas < 0 {
			errs = append(errs, fmt.Errorf("%s.replicas must not be negative", field))
		}
		if msgs := validation.IsValidPortNum(int(app.TargetPort)); len(msgs) > 0 {
			errs = append(errs, fmt.Errorf("%s.target_port %d: %s", field, app.TargetPort, strings.Join(msgs, "; ")))
		}
		if app.Domain != "" {
			if msgs := validation.IsDNS1123Subdomain(app.Domain); len(msgs) > 0 {
				errs = append(errs, fmt.Errorf("%s.domain %q: %s", field, app.Domain, strings.Join(msgs, "; ")))
			}
		}
		if app.Version == AppVersionV1 && app.DNS != nil && *app.DNS {
			errs = append(errs, fmt.Errorf("%s: dns records require version v2", field))
		}
	}
	return errs
}

func (c *Config) validateDNS() []error {
	var errs []error
	if !ValidDNSProviders[c.DNS.Provider] {
		errs = append(errs, fmt.Errorf("dns.provider %q: must be route53 or cloudflare", c.DNS.Provider))
	}
	if c.DNS.TTL < 0 {
		errs = append(errs, fmt.Errorf("dns.ttl must not be negative"))
	}
	if c.DNS.Provider == DNSProviderCloudflare && c.DNS.Cloudflare.APIToken == "" {
		errs = append(errs, fmt.Errorf("dns.cloudflare.api_token (or CLOUDFLARE_API_TOKEN) is required"))
	}
	return errs
}

func (c *Config) validateState() []error {
	var errs []error
	if !ValidStateBackends[c.State.Backend] {
		errs = append(errs, fmt.Errorf("state.backend %q: must be local or s3", c.State.Backend))
	}
	if c.State.Backend == StateBackendS3 && c.State.S3.Bucket == "" {
		errs = append(errs, fmt.Errorf("state.s3.bucket is required for the s3 backend"))
	}
	return errs
}
