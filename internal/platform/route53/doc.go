// Package route53 manages app records in an existing AWS Route53 hosted zone.
package route53
