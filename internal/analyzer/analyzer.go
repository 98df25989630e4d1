// Package analyzer defines the external security/compliance analysis
// collaborator consumed by the pipeline. The pipeline treats it as a
// black box: when it is unavailable, threats and compliance results are
// simply empty.
package analyzer

import (
	"context"

	"github.com/catherinevee/importmgr/pkg/models"
)

// Analysis is the analyzer's combined output.
type Analysis struct {
	Threats    []models.ThreatFinding
	Compliance map[string]models.ComplianceStatus
}

// Analyzer assesses discovered resources for threats and framework
// compliance.
type Analyzer interface {
	Analyze(ctx context.Context, resources []models.DiscoveredResource) (Analysis, error)
}

// Noop is the default analyzer: no threats, no compliance data.
type Noop struct{}

// Analyze returns an empty analysis.
func (Noop) Analyze(ctx context.Context, resources []models.DiscoveredResource) (Analysis, error) {
	return Analysis{Compliance: map[string]models.ComplianceStatus{}}, nil
}
