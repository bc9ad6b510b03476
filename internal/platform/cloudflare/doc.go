// Package cloudflare is a minimal Cloudflare API client that manages app
// records in an existing zone.
package cloudflare
