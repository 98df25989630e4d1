package discovery

import (
	"context"

	"github.com/catherinevee/importmgr/pkg/models"
)

// CloudClient is the read-only surface of the cloud provider consumed by
// the discovery strategies and the per-resource security checks. It is
// injected into the engine once per job; there is no shared global
// client state.
type CloudClient interface {
	// AccountID returns the account the client is scoped to.
	AccountID() string
	// Region returns the region the client is scoped to.
	Region() string

	// ListComputeInstances enumerates compute instances in the region.
	ListComputeInstances(ctx context.Context) ([]models.DiscoveredResource, error)
	// ListStorageBuckets enumerates object-storage buckets.
	ListStorageBuckets(ctx context.Context) ([]models.DiscoveredResource, error)
	// ListDatabases enumerates managed database instances in the region.
	ListDatabases(ctx context.Context) ([]models.DiscoveredResource, error)

	// ListTaggedResources enumerates resources via the provider's tag
	// index, optionally restricted to the given services and tag filters.
	// Enumeration stops once limit resources have been collected.
	ListTaggedResources(ctx context.Context, services []string, filters map[string]string, limit int) ([]models.DiscoveredResource, error)

	// GetBucketPublicAccessBlock reports whether the bucket's
	// public-access block is fully enabled.
	GetBucketPublicAccessBlock(ctx context.Context, bucket string) (bool, error)
	// GetBucketEncryption reports whether server-side encryption is
	// configured for the bucket.
	GetBucketEncryption(ctx context.Context, bucket string) (bool, error)
}
