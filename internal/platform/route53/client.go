package route53

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/jaxxstorm/pulumi-nginx-demo/internal/dns"
	"github.com/jaxxstorm/pulumi-nginx-demo/internal/util/naming"
)

// ProviderName identifies Route53 in state.
const ProviderName = "route53"

// API is the subset of the Route53 client used here.
type API interface {
	ListHostedZonesByName(ctx context.Context, in *route53.ListHostedZonesByNameInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesByNameOutput, error)
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Client implements dns.Provider on top of Route53.
type Client struct {
	api API

	// hostedZoneID pins every record to one zone when set.
	hostedZoneID string

	mu    sync.Mutex
	zones map[string]string
}

var _ dns.Provider = (*Client)(nil)

// NewClient creates a Route53 client from the default AWS credential chain.
func NewClient(ctx context.Context, region, hostedZoneID string) (*Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewFromAPI(route53.NewFromConfig(cfg), hostedZoneID), nil
}

// NewFromAPI wraps an existing API implementation.
func NewFromAPI(api API, hostedZoneID string) *Client {
	return &Client{
		api:          api,
		hostedZoneID: trimZoneID(hostedZoneID),
		zones:        make(map[string]string),
	}
}

// Name implements dns.Provider.
func (c *Client) Name() string { return ProviderName }

// ZoneID resolves the ID of the public hosted zone named zone.
func (c *Client) ZoneID(ctx context.Context, zone string) (string, error) {
	if c.hostedZoneID != "" {
		return c.hostedZoneID, nil
	}

	want := strings.ToLower(naming.FQDN(zone))

	c.mu.Lock()
	id, ok := c.zones[want]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	out, err := c.api.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName:  aws.String(want),
		MaxItems: aws.Int32(10),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list hosted zones: %w", classify(err))
	}

	for _, hz := range out.HostedZones {
		if !strings.EqualFold(aws.ToString(hz.Name), want) {
			continue
		}
		if hz.Config != nil && hz.Config.PrivateZone {
			continue
		}
		id = trimZoneID(aws.ToString(hz.Id))
		c.mu.Lock()
		c.zones[want] = id
		c.mu.Unlock()
		return id, nil
	}

	return "", fmt.Errorf("%w: %s", dns.ErrZoneNotFound, naming.TrimDot(zone))
}

// UpsertRecord implements dns.Provider.
func (c *Client) UpsertRecord(ctx context.Context, rec dns.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	zoneID, err := c.ZoneID(ctx, rec.Zone)
	if err != nil {
		return err
	}

	set := &types.ResourceRecordSet{
		Name: aws.String(rec.FQDN()),
		Type: types.RRType(rec.Type),
		TTL:  aws.Int64(rec.TTL),
		ResourceRecords: []types.ResourceRecord{
			{Value: aws.String(rec.Target)},
		},
	}
	if err := c.change(ctx, zoneID, types.ChangeActionUpsert, set); err != nil {
		return fmt.Errorf("failed to upsert %s record %s: %w", rec.Type, rec.Name, err)
	}

	log.FromContext(ctx).WithName("route53").Info("upserted record",
		"zone", zoneID, "name", rec.Name, "type", rec.Type, "target", rec.Target)
	return nil
}

// DeleteRecord implements dns.Provider. Route53 only deletes exact matches,
// so the current record set is read back first.
func (c *Client) DeleteRecord(ctx context.Context, rec dns.Record) error {
	zoneID, err := c.ZoneID(ctx, rec.Zone)
	if err != nil {
		if errors.Is(err, dns.ErrZoneNotFound) {
			return nil
		}
		return err
	}

	existing, err := c.findRecordSet(ctx, zoneID, rec)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if err := c.change(ctx, zoneID, types.ChangeActionDelete, existing); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete %s record %s: %w", rec.Type, rec.Name, err)
	}

	log.FromContext(ctx).WithName("route53").Info("deleted record", "zone", zoneID, "name", rec.Name, "type", rec.Type)
	return nil
}

func (c *Client) findRecordSet(ctx context.Context, zoneID string, rec dns.Record) (*types.ResourceRecordSet, error) {
	out, err := c.api.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(rec.FQDN()),
		StartRecordType: types.RRType(rec.Type),
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list record sets in zone %s: %w", zoneID, classify(err))
	}

	for i := range out.ResourceRecordSets {
		set := out.ResourceRecordSets[i]
		if strings.EqualFold(aws.ToString(set.Name), rec.FQDN()) && string(set.Type) == rec.Type {
			return &set, nil
		}
	}
	return nil, nil
}

func (c *Client) change(ctx context.Context, zoneID string, action types.ChangeAction, set *types.ResourceRecordSet) error {
	_, err := c.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("managed by nginx-demo"),
			Changes: []types.Change{
				{Action: action, ResourceRecordSet: set},
			},
		},
	})
	return classify(err)
}

// transientCodes are Route53 error codes worth retrying.
var transientCodes = map[string]bool{
	"Throttling":              true,
	"ThrottlingException":     true,
	"PriorRequestNotComplete": true,
	"RequestLimitExceeded":    true,
	"ServiceUnavailable":      true,
	"InternalFailure":         true,
}

// classify marks throttling, server faults and failed sends as transient.
// Everything else, such as AccessDenied or InvalidInput, is returned as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] || apiErr.ErrorFault() == smithy.FaultServer {
			return dns.Transient(err)
		}
		return err
	}
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return dns.Transient(err)
	}
	return err
}

func trimZoneID(id string) string {
	return strings.TrimPrefix(id, "/hostedzone/")
}

// isNotFound reports whether a delete raced with another writer.
func isNotFound(err error) bool {
	var invalid *types.InvalidChangeBatch
	if errors.As(err, &invalid) {
		for _, msg := range invalid.Messages {
			if strings.Contains(msg, "not found") {
				return true
			}
		}
		return strings.Contains(invalid.ErrorMessage(), "not found")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchHostedZone"
	}
	return false
}
