// Package retry provides exponential backoff retry logic for transient failures.
//
// The [WithExponentialBackoff] function retries an operation with configurable
// max attempts, initial delay, maximum delay and a retry predicate. The stack
// engine uses it for Kubernetes API writes and DNS provider calls, which can
// fail transiently while the ingress controller is still starting up.
package retry
