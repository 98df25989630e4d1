package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/importmgr/pkg/models"
)

func TestNoopAnalyze(t *testing.T) {
	analysis, err := Noop{}.Analyze(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, analysis.Threats)
	assert.Empty(t, analysis.Compliance)
	assert.NotNil(t, analysis.Compliance)
}

func TestComplianceStatus(t *testing.T) {
	tests := []struct {
		name   string
		passed int
		failed int
		status models.ComplianceState
		score  float64
	}{
		{"all passing", 10, 0, models.ComplianceCompliant, 100},
		{"all failing", 0, 5, models.ComplianceNonCompliant, 0},
		{"mixed", 3, 1, models.CompliancePartial, 75},
		{"no controls", 0, 0, models.ComplianceUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := complianceStatus(tt.passed, tt.failed)
			assert.Equal(t, tt.status, status.Status)
			assert.InDelta(t, tt.score, status.Score, 0.001)
			assert.Equal(t, tt.passed+tt.failed, status.TotalControls)
		})
	}
}

func TestStandardOf(t *testing.T) {
	assert.Equal(t, "FSBP", standardOf("aws-foundational-security-best-practices/v/1.0.0/S3.4"))
	assert.Equal(t, "CIS", standardOf("cis-aws-foundations-benchmark/v/1.2.0/2.1"))
	assert.Equal(t, "PCI-DSS", standardOf("pci-dss/v/3.2.1/PCI.S3.1"))
	assert.Equal(t, "unknown", standardOf(""))
}

func TestResourceName(t *testing.T) {
	assert.Equal(t, "i-0abc", resourceName("arn:aws:ec2:us-east-1:123456789012:instance/i-0abc"))
	assert.Equal(t, "my-bucket", resourceName("arn:aws:s3:::my-bucket"))
	assert.Equal(t, "plain-id", resourceName("plain-id"))
}
