// Package naming provides consistent naming functions for stack resources.
//
// Kubernetes objects created for an app share the app's name; hosts follow
// {app}.{domain}; resource URNs follow urn:{stack}::{type}::{name}.
package naming
