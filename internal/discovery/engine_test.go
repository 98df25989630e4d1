package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/pkg/models"
)

// fakeClient scripts per-call results so strategy behavior can be
// controlled from tests.
type fakeClient struct {
	instances    []models.DiscoveredResource
	buckets      []models.DiscoveredResource
	databases    []models.DiscoveredResource
	tagged       []models.DiscoveredResource
	instancesErr error
	bucketsErr   error
	databasesErr error
	taggedErr    error
	taggedDelay  time.Duration
}

func (f *fakeClient) AccountID() string { return "123456789012" }
func (f *fakeClient) Region() string    { return "us-east-1" }

func (f *fakeClient) ListComputeInstances(ctx context.Context) ([]models.DiscoveredResource, error) {
	return f.instances, f.instancesErr
}

func (f *fakeClient) ListStorageBuckets(ctx context.Context) ([]models.DiscoveredResource, error) {
	return f.buckets, f.bucketsErr
}

func (f *fakeClient) ListDatabases(ctx context.Context) ([]models.DiscoveredResource, error) {
	return f.databases, f.databasesErr
}

func (f *fakeClient) ListTaggedResources(ctx context.Context, services []string, filters map[string]string, limit int) ([]models.DiscoveredResource, error) {
	if f.taggedDelay > 0 {
		select {
		case <-time.After(f.taggedDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if len(f.tagged) > limit {
		return f.tagged[:limit], f.taggedErr
	}
	return f.tagged, f.taggedErr
}

func (f *fakeClient) GetBucketPublicAccessBlock(ctx context.Context, bucket string) (bool, error) {
	return false, nil
}

func (f *fakeClient) GetBucketEncryption(ctx context.Context, bucket string) (bool, error) {
	return false, nil
}

func resource(service, id string, details map[string]interface{}) models.DiscoveredResource {
	if details == nil {
		details = map[string]interface{}{}
	}
	return models.DiscoveredResource{
		Service: service,
		Type:    "aws_" + service,
		ID:      id,
		Region:  "us-east-1",
		Tags:    map[string]string{},
		Details: details,
	}
}

func TestDiscoverDeduplicatesAcrossStrategies(t *testing.T) {
	client := &fakeClient{
		instances: []models.DiscoveredResource{resource("ec2", "i-1", nil)},
		buckets:   []models.DiscoveredResource{resource("s3", "b1", nil)},
		tagged: []models.DiscoveredResource{
			resource("ec2", "i-1", nil),
			resource("s3", "b1", nil),
			resource("rds", "db-1", nil),
		},
	}

	engine := NewEngine(client, DefaultConfig())
	result, err := engine.Discover(context.Background(), nil, nil)
	require.NoError(t, err)

	// At most one entry per (service, id) no matter how many strategies
	// surfaced it. Direct and untagged return identical sets, tagged
	// overlaps on two of three.
	assert.Len(t, result["ec2"], 1)
	assert.Len(t, result["s3"], 1)
	assert.Len(t, result["rds"], 1)
}

func TestDiscoverFirstSeenWins(t *testing.T) {
	client := &fakeClient{
		instances: []models.DiscoveredResource{
			resource("ec2", "i-1", map[string]interface{}{"source": "direct"}),
		},
		tagged: []models.DiscoveredResource{
			resource("ec2", "i-1", map[string]interface{}{"source": "tagged"}),
		},
		// Tagged finishes first but merges second; the direct record
		// must still win.
		instancesErr: nil,
	}

	engine := NewEngine(client, DefaultConfig())
	result, err := engine.Discover(context.Background(), nil, nil)
	require.NoError(t, err)

	require.Len(t, result["ec2"], 1)
	assert.Equal(t, "direct", result["ec2"][0].Details["source"])
}

func TestDiscoverEmptyUnionIsFatal(t *testing.T) {
	client := &fakeClient{}

	engine := NewEngine(client, DefaultConfig())
	result, err := engine.Discover(context.Background(), nil, nil)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, pipeerr.IsKind(err, pipeerr.KindNoResourcesFound))
}

func TestDiscoverSingleStrategyFailureIsNotFatal(t *testing.T) {
	client := &fakeClient{
		instances: []models.DiscoveredResource{
			resource("ec2", "i-1", nil),
			resource("ec2", "i-2", nil),
			resource("ec2", "i-3", nil),
		},
		taggedErr: fmt.Errorf("throttled"),
	}

	engine := NewEngine(client, DefaultConfig())
	result, err := engine.Discover(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Len(t, result["ec2"], 3)
}

func TestDiscoverTaggedTimeoutProceedsWithDirectResults(t *testing.T) {
	client := &fakeClient{
		instances: []models.DiscoveredResource{
			resource("ec2", "i-1", nil),
			resource("ec2", "i-2", nil),
			resource("ec2", "i-3", nil),
		},
		taggedDelay: 500 * time.Millisecond,
	}

	engine := NewEngine(client, Config{
		ResourceCap:     100,
		StrategyTimeout: 50 * time.Millisecond,
		JoinTimeout:     time.Second,
	})
	result, err := engine.Discover(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Len(t, result["ec2"], 3)
}

func TestDiscoverServiceFilter(t *testing.T) {
	client := &fakeClient{
		instances: []models.DiscoveredResource{resource("ec2", "i-1", nil)},
		buckets:   []models.DiscoveredResource{resource("s3", "b1", nil)},
		databases: []models.DiscoveredResource{resource("rds", "db-1", nil)},
		tagged:    []models.DiscoveredResource{resource("lambda", "fn-1", nil)},
	}

	engine := NewEngine(client, DefaultConfig())
	result, err := engine.Discover(context.Background(), []string{"s3"}, nil)
	require.NoError(t, err)

	assert.Len(t, result, 1)
	assert.Len(t, result["s3"], 1)
}

func TestDiscoverResourceCap(t *testing.T) {
	var instances []models.DiscoveredResource
	for i := 0; i < 20; i++ {
		instances = append(instances, resource("ec2", fmt.Sprintf("i-%d", i), nil))
	}
	client := &fakeClient{instances: instances}

	engine := NewEngine(client, Config{ResourceCap: 5})
	result, err := engine.Discover(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Len(t, result["ec2"], 5)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, 100, cfg.ResourceCap)
	assert.Equal(t, 60*time.Second, cfg.StrategyTimeout)
	assert.Greater(t, cfg.JoinTimeout, cfg.StrategyTimeout)
}
