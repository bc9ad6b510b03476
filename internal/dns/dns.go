package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

// Record types.
const (
	TypeCNAME = "CNAME"
	TypeA     = "A"
)

// ErrZoneNotFound is returned when the hosted zone does not exist.
var ErrZoneNotFound = errors.New("hosted zone not found")

// ErrTransient marks provider failures that may succeed on a later attempt:
// throttling, server-side errors and failed round trips.
var ErrTransient = errors.New("transient DNS provider error")

// Transient wraps err so that errors.Is(err, ErrTransient) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{e.err, ErrTransient} }

// Record is a single DNS record inside a hosted zone. Names are stored
// without a trailing dot.
type Record struct {
	Zone   string `yaml:"zone" json:"zone"`
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Target string `yaml:"target" json:"target"`
	TTL    int64  `yaml:"ttl" json:"ttl"`
}

// Provider manages records in an existing zone.
type Provider interface {
	// Name identifies the provider in state and logs.
	Name() string

	// UpsertRecord creates the record or replaces its target.
	UpsertRecord(ctx context.Context, rec Record) error

	// DeleteRecord removes the record. A missing record is not an error.
	DeleteRecord(ctx context.Context, rec Record) error
}

// CNAME returns a CNAME record for fqdn pointing at target.
func CNAME(zone, fqdn, target string, ttl int64) Record {
	return Record{
		Zone:   naming.TrimDot(zone),
		Name:   naming.TrimDot(fqdn),
		Type:   TypeCNAME,
		Target: naming.TrimDot(target),
		TTL:    ttl,
	}
}

// A returns an A record for fqdn pointing at ip.
func A(zone, fqdn, ip string, ttl int64) Record {
	return Record{
		Zone:   naming.TrimDot(zone),
		Name:   naming.TrimDot(fqdn),
		Type:   TypeA,
		Target: ip,
		TTL:    ttl,
	}
}

// ForTarget returns an A record when target is an IPv4 address and a CNAME
// otherwise.
func ForTarget(zone, fqdn, target string, ttl int64) Record {
	if ip := net.ParseIP(target); ip != nil && ip.To4() != nil {
		return A(zone, fqdn, ip.String(), ttl)
	}
	return CNAME(zone, fqdn, target, ttl)
}

// FQDN returns the record name with a trailing dot.
func (r Record) FQDN() string {
	return naming.FQDN(r.Name)
}

// String renders the record in zone-file style.
func (r Record) String() string {
	target := r.Target
	if r.Type == TypeCNAME {
		target = naming.FQDN(target)
	}
	return fmt.Sprintf("%s %d IN %s %s", r.FQDN(), r.TTL, r.Type, target)
}

// Validate checks that the record can be written to its zone.
func (r Record) Validate() error {
	var errs []error
	if r.Zone == "" {
		errs = append(errs, errors.New("zone is required"))
	}
	if r.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if r.Type != TypeCNAME && r.Type != TypeA {
		errs = append(errs, fmt.Errorf("unsupported record type %q", r.Type))
	}
	switch {
	case r.Target == "":
		errs = append(errs, errors.New("target is required"))
	case r.Type == TypeA:
		if ip := net.ParseIP(r.Target); ip == nil || ip.To4() == nil {
			errs = append(errs, fmt.Errorf("A record target %q is not an IPv4 address", r.Target))
		}
	case r.Type == TypeCNAME:
		if net.ParseIP(naming.TrimDot(r.Target)) != nil {
			errs = append(errs, fmt.Errorf("CNAME target %q must be a hostname", r.Target))
		}
	}
	if r.TTL <= 0 {
		errs = append(errs, fmt.Errorf("ttl must be positive, got %d", r.TTL))
	}
	if r.Zone != "" && r.Name != "" && !InZone(r.Name, r.Zone) {
		errs = append(errs, fmt.Errorf("%s is not inside zone %s", r.Name, r.Zone))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid %s record %s: %w", r.Type, r.Name, errors.Join(errs...))
	}
	return nil
}

// InZone reports whether name is zone itself or a subdomain of it.
func InZone(name, zone string) bool {
	name = strings.ToLower(naming.TrimDot(name))
	zone = strings.ToLower(naming.TrimDot(zone))
	return name == zone || strings.HasSuffix(name, "."+zone)
}
