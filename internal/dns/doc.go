// Package dns defines the DNS record model and the provider interface used to
// bind app hostnames in an existing hosted zone.
package dns
