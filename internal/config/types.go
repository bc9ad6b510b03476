package config

import "time"

// Config holds the stack configuration.
type Config struct {
	// Stack names this deployment. State keys and object labels derive from it.
	Stack string `yaml:"stack"`

	// Kubeconfig is the path to the kubeconfig file. Falls back to $KUBECONFIG
	// and then ~/.kube/config.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	// CacheDir holds downloaded chart archives.
	CacheDir string `yaml:"cache_dir,omitempty"`

	Controller ControllerConfig `yaml:"controller"`
	Apps       []AppConfig      `yaml:"apps"`
	DNS        DNSConfig        `yaml:"dns"`
	State      StateConfig      `yaml:"state"`
}

// ChartConfig overrides the registry entry of a chart.
type ChartConfig struct {
	Repository string `yaml:"repository,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Version    string `yaml:"version,omitempty"`
}

// ControllerConfig configures the NGINX ingress controller installation.
type ControllerConfig struct {
	Namespace string      `yaml:"namespace,omitempty"`
	Release   string      `yaml:"release,omitempty"`
	Chart     ChartConfig `yaml:"chart,omitempty"`

	// Values are deep-merged over the controller defaults
	// (controller.nginxplus=false).
	Values map[string]any `yaml:"values,omitempty"`

	// ServiceName overrides discovery of the controller's LoadBalancer Service.
	ServiceName string `yaml:"service_name,omitempty"`

	// KubeVersion is the Kubernetes version advertised to chart templates.
	KubeVersion string `yaml:"kube_version,omitempty"`

	// WaitTimeout bounds the wait for the load balancer address.
	WaitTimeout time.Duration `yaml:"wait_timeout,omitempty"`
}

// AppConfig describes one production app. Zero values fall back to the
// defaults of the selected version.
type AppConfig struct {
	Name         string `yaml:"name"`
	Image        string `yaml:"image"`
	Version      string `yaml:"version,omitempty"`
	Replicas     *int32 `yaml:"replicas,omitempty"`
	Domain       string `yaml:"domain,omitempty"`
	TargetPort   int32  `yaml:"target_port,omitempty"`
	IngressClass string `yaml:"ingress_class,omitempty"`

	// DNS toggles the CNAME record for this app. Unset means "bind when the
	// version supports it and a provider is configured".
	DNS *bool `yaml:"dns,omitempty"`
}

// DNSConfig selects the provider hosting the existing zone.
type DNSConfig struct {
	// Provider is "route53", "cloudflare" or empty to disable records.
	Provider string `yaml:"provider,omitempty"`

	// Zone is the hosted zone name. Defaults to each app's domain.
	Zone string `yaml:"zone,omitempty"`

	TTL int64 `yaml:"ttl,omitempty"`

	Route53    Route53Config    `yaml:"route53,omitempty"`
	Cloudflare CloudflareConfig `yaml:"cloudflare,omitempty"`
}

// Route53Config holds AWS Route53 settings.
type Route53Config struct {
	Region string `yaml:"region,omitempty"`

	// HostedZoneID skips the zone lookup by name.
	HostedZoneID string `yaml:"hosted_zone_id,omitempty"`
}

// CloudflareConfig holds Cloudflare settings.
type CloudflareConfig struct {
	APIToken string `yaml:"api_token,omitempty"`
	ZoneID   string `yaml:"zone_id,omitempty"`
	Proxied  bool   `yaml:"proxied,omitempty"`
}

// StateConfig selects where the stack state is stored.
type StateConfig struct {
	// Backend is "local" or "s3".
	Backend string   `yaml:"backend,omitempty"`
	Path    string   `yaml:"path,omitempty"`
	S3      S3Config `yaml:"s3,omitempty"`
}

// S3Config holds the S3 state backend settings. Credentials come from the
// environment or the default AWS credential chain.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// DNSEnabled reports whether an app should get a DNS record.
func (c *Config) DNSEnabled(app AppConfig) bool {
	if c.DNS.Provider == "" {
		return false
	}
	if app.Version == AppVersionV1 {
		return false
	}
	if app.DNS != nil {
		return *app.DNS
	}
	return true
}

// ZoneFor returns the hosted zone name used for an app's record.
func (c *Config) ZoneFor(domain string) string {
	if c.DNS.Zone != "" {
		return c.DNS.Zone
	}
	return domain
}
