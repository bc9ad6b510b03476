package naming

import (
	"fmt"
	"strings"
)

// URN returns the stable identifier of a declared resource.
func URN(stack, typ, name string) string {
	return fmt.Sprintf("urn:%s::%s::%s", stack, typ, name)
}

// URNName returns the name segment of a URN built by URN.
func URNName(urn string) string {
	if i := strings.LastIndex(urn, "::"); i >= 0 {
		return urn[i+2:]
	}
	return urn
}

// Host returns the ingress host of an app.
func Host(app, domain string) string {
	return fmt.Sprintf("%s.%s", app, strings.TrimSuffix(domain, "."))
}

// FQDN returns name with exactly one trailing dot.
func FQDN(name string) string {
	return strings.TrimSuffix(name, ".") + "."
}

// TrimDot strips the trailing dot from a fully qualified name.
func TrimDot(name string) string {
	return strings.TrimSuffix(name, ".")
}

// StateKey returns the object key under which a stack's state is stored.
func StateKey(prefix, stack string) string {
	key := stack + ".state.yaml"
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// ChartArchive returns the cache file name of a packaged chart.
func ChartArchive(chart, version string) string {
	return fmt.Sprintf("%s-%s.tgz", chart, version)
}
