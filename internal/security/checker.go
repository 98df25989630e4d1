// Package security performs targeted read-only security checks against
// discovered resources. Checks are pure functions of resource state plus
// a small bounded number of additional provider lookups; a check that
// cannot be evaluated degrades to an advisory finding instead of failing
// the batch.
package security

import (
	"context"

	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// AdvisoryManualReview is returned when a resource cannot be evaluated.
const AdvisoryManualReview = "resource could not be evaluated automatically and needs manual review"

// BucketInspector is the subset of the cloud client the checker needs
// for per-bucket lookups.
type BucketInspector interface {
	GetBucketPublicAccessBlock(ctx context.Context, bucket string) (bool, error)
	GetBucketEncryption(ctx context.Context, bucket string) (bool, error)
}

// Checker runs the per-service check sets.
type Checker struct {
	inspector BucketInspector
	log       logger.Logger
}

// NewChecker creates a checker backed by the given bucket inspector.
func NewChecker(inspector BucketInspector) *Checker {
	return &Checker{
		inspector: inspector,
		log:       logger.New("security"),
	}
}

// Check evaluates the fixed check set for the resource's service and
// returns human-readable issue strings. An empty list means the
// resource passed every check. Check never returns an error: failures
// degrade to the manual-review advisory.
func (c *Checker) Check(ctx context.Context, service string, resource models.DiscoveredResource) []string {
	if resource.ID == "" || resource.ID == models.UnknownComponent {
		return []string{AdvisoryManualReview}
	}

	switch service {
	case "s3":
		return c.checkBucket(ctx, resource)
	case "rds":
		return c.checkDatabase(resource)
	case "ec2":
		return c.checkInstance(resource)
	default:
		return nil
	}
}

func (c *Checker) checkBucket(ctx context.Context, resource models.DiscoveredResource) []string {
	var issues []string

	blocked, err := c.inspector.GetBucketPublicAccessBlock(ctx, resource.ID)
	if err != nil {
		c.log.Warn("public access block lookup failed",
			logger.String("bucket", resource.ID), logger.Error(err))
		return []string{AdvisoryManualReview}
	}
	if !blocked {
		issues = append(issues, "bucket public access block is not fully enabled, bucket may be publicly exposed")
	}

	encrypted, err := c.inspector.GetBucketEncryption(ctx, resource.ID)
	if err != nil {
		c.log.Warn("encryption lookup failed",
			logger.String("bucket", resource.ID), logger.Error(err))
		issues = append(issues, AdvisoryManualReview)
		return issues
	}
	if !encrypted {
		issues = append(issues, "bucket has no server-side encryption configured")
	}

	return issues
}

// checkDatabase evaluates the RDS flag checks. Resources surfaced only
// by the tag index carry a bare detail map without these flags; their
// state is unknown, not failing, so they degrade to the advisory.
func (c *Checker) checkDatabase(resource models.DiscoveredResource) []string {
	public, publicKnown := boolDetail(resource, "publicly_accessible")
	encrypted, encryptedKnown := boolDetail(resource, "storage_encrypted")
	if !publicKnown || !encryptedKnown {
		return []string{AdvisoryManualReview}
	}

	var issues []string
	if public {
		issues = append(issues, "database instance is publicly accessible")
	}
	if !encrypted {
		issues = append(issues, "database storage encryption is disabled")
	}
	return issues
}

func (c *Checker) checkInstance(resource models.DiscoveredResource) []string {
	ip, known := stringDetail(resource, "public_ip")
	if !known {
		return []string{AdvisoryManualReview}
	}

	var issues []string
	if ip != "" {
		issues = append(issues, "instance has a public IP address assigned ("+ip+")")
	}
	return issues
}

func boolDetail(resource models.DiscoveredResource, key string) (bool, bool) {
	v, ok := resource.Details[key].(bool)
	return v, ok
}

func stringDetail(resource models.DiscoveredResource, key string) (string, bool) {
	v, ok := resource.Details[key].(string)
	return v, ok
}
