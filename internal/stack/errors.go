package stack

import (
	"errors"
	"net"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/retry"
)

// IsTransient reports whether an API error is worth retrying: conflicts,
// throttling, server-side timeouts and unavailability, and dropped
// connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case apierrors.IsConflict(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return true
	case isNetworkError(err):
		return true
	}
	return errors.Is(err, dns.ErrTransient)
}

func isNetworkError(err error) bool {
	if utilnet.IsConnectionReset(err) || utilnet.IsConnectionRefused(err) || utilnet.IsProbableEOF(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyDNS lets provider errors marked transient, and network failures,
// through for retry. Every other provider error is fatal.
func classifyDNS(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, dns.ErrTransient) || isNetworkError(err) {
		return err
	}
	return retry.Fatal(err)
}
