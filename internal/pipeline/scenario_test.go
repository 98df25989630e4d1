package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/importmgr/internal/codegen"
	"github.com/catherinevee/importmgr/internal/cost"
	"github.com/catherinevee/importmgr/internal/gaps"
	"github.com/catherinevee/importmgr/internal/security"
	"github.com/catherinevee/importmgr/pkg/models"
)

type openBucketInspector struct{}

func (openBucketInspector) GetBucketPublicAccessBlock(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (openBucketInspector) GetBucketEncryption(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// Exercises the real checker, gap engine, cost estimator and fallback
// generator end to end: an exposed unencrypted bucket plus a private
// instance must land on a score of exactly 85 with the high-severity
// item leading the advice.
func TestRunImportExposedBucketScenario(t *testing.T) {
	inventory := map[string][]models.DiscoveredResource{
		"s3": {{
			Service: "s3", Type: "aws_s3_bucket", ID: "b1", Region: "us-east-1",
		}},
		"ec2": {{
			Service: "ec2", Type: "aws_instance", ID: "i1", Region: "us-east-1",
			Details: map[string]interface{}{"instance_type": "t3.micro", "public_ip": ""},
		}},
	}

	ctrl := NewController(
		&fakeDiscoverer{byService: inventory},
		security.NewChecker(openBucketInspector{}),
		gaps.NewEngine(),
		cost.NewEstimator(),
		codegen.NewAdapter(nil, "us-east-1", codegen.Config{}),
		nil,
		nil,
		Config{AccountID: "123456789012", Region: "us-east-1"},
	)

	job := ctrl.RunImport(context.Background(), "exposed-bucket", nil, nil)

	require.Equal(t, models.JobStatusComplete, job.Status)
	require.Len(t, job.Resources, 2)

	var bucket, instance models.DiscoveredResource
	for _, r := range job.Resources {
		switch r.ID {
		case "b1":
			bucket = r
		case "i1":
			instance = r
		}
	}
	assert.False(t, bucket.Compliant)
	assert.Len(t, bucket.SecurityIssues, 2)
	assert.True(t, instance.Compliant)

	bucketGaps := map[models.GapType]models.Severity{}
	for _, gap := range job.Gaps {
		require.Equal(t, "b1", gap.ResourceID)
		bucketGaps[gap.Type] = gap.Severity
	}
	require.Len(t, bucketGaps, 2)
	assert.Equal(t, models.SeverityHigh, bucketGaps[models.GapPublicAccess])
	assert.Equal(t, models.SeverityMedium, bucketGaps[models.GapMissingEncryption])

	assert.Equal(t, 85, job.SecurityScore)

	require.NotEmpty(t, job.Recommendations)
	assert.Contains(t, job.Recommendations[0], "high-severity")

	// fallback generator still emits a block for every resource
	assert.Contains(t, job.IaCDocument, "aws_s3_bucket")
	assert.Contains(t, job.IaCDocument, "aws_instance")
	assert.Greater(t, job.TotalCost, 0.0)
}
