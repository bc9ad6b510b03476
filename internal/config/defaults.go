package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values applied by [Config.ApplyDefaults].
const (
	DefaultControllerNamespace = "nginx-ingress"
	DefaultControllerRelease   = "nginx-ingress"
	DefaultKubeVersion         = "v1.31.0"
	DefaultWaitTimeout         = 10 * time.Minute
	DefaultAppVersion          = AppVersionV2
	DefaultTargetPort          = int32(8080)
	DefaultIngressClass        = "nginx"
	DefaultDNSTTL              = int64(300)
	DefaultStateBackend        = StateBackendLocal
	DefaultStateDir            = ".nginx-demo"
)

// App versions.
const (
	AppVersionV1 = "v1"
	AppVersionV2 = "v2"
)

// DNS providers.
const (
	DNSProviderRoute53    = "route53"
	DNSProviderCloudflare = "cloudflare"
)

// State backends.
const (
	StateBackendLocal = "local"
	StateBackendS3    = "s3"
)

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	if c.Controller.Namespace == "" {
		c.Controller.Namespace = DefaultControllerNamespace
	}
	if c.Controller.Release == "" {
		c.Controller.Release = DefaultControllerRelease
	}
	if c.Controller.KubeVersion == "" {
		c.Controller.KubeVersion = DefaultKubeVersion
	}
	if c.Controller.WaitTimeout == 0 {
		c.Controller.WaitTimeout = DefaultWaitTimeout
	}

	for i := range c.Apps {
		app := &c.Apps[i]
		if app.Version == "" {
			app.Version = DefaultAppVersion
		}
		if app.TargetPort == 0 {
			app.TargetPort = DefaultTargetPort
		}
		if app.IngressClass == "" {
			app.IngressClass = DefaultIngressClass
		}
	}

	if c.DNS.TTL == 0 {
		c.DNS.TTL = DefaultDNSTTL
	}

	if c.State.Backend == "" {
		c.State.Backend = DefaultStateBackend
	}
	if c.State.Backend == StateBackendLocal && c.State.Path == "" && c.Stack != "" {
		c.State.Path = filepath.Join(DefaultStateDir, c.Stack+".state.yaml")
	}

	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.Kubeconfig == "" {
		c.Kubeconfig = defaultKubeconfig()
	}
}

// ApplyEnv overrides secrets and locations from the environment.
//
// Environment Variables:
//   - KUBECONFIG (when kubeconfig is unset)
//   - CLOUDFLARE_API_TOKEN
//   - AWS_REGION (when route53.region / s3.region are unset)
//   - NGINX_DEMO_S3_ACCESS_KEY, NGINX_DEMO_S3_SECRET_KEY
func (c *Config) ApplyEnv() {
	if c.Kubeconfig == "" {
		if kc := os.Getenv("KUBECONFIG"); kc != "" {
			c.Kubeconfig = filepath.SplitList(kc)[0]
		}
	}
	if token := os.Getenv("CLOUDFLARE_API_TOKEN"); token != "" {
		c.DNS.Cloudflare.APIToken = token
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		if c.DNS.Route53.Region == "" {
			c.DNS.Route53.Region = region
		}
		if c.State.S3.Region == "" {
			c.State.S3.Region = region
		}
	}
	c.State.S3.AccessKey = os.Getenv("NGINX_DEMO_S3_ACCESS_KEY")
	c.State.S3.SecretKey = os.Getenv("NGINX_DEMO_S3_SECRET_KEY")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "nginx-demo", "charts")
	}
	return filepath.Join(DefaultStateDir, "charts")
}

func defaultKubeconfig() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}
