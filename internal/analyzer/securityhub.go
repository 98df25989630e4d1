package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/securityhub/types"

	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// SecurityHub implements Analyzer against AWS Security Hub. Active
// findings touching the discovered resources become threat findings;
// per-standard pass/fail counts become compliance statuses.
type SecurityHub struct {
	client *securityhub.Client
	log    logger.Logger
}

// NewSecurityHub creates a Security Hub analyzer.
func NewSecurityHub(cfg aws.Config) *SecurityHub {
	return &SecurityHub{
		client: securityhub.NewFromConfig(cfg),
		log:    logger.New("analyzer"),
	}
}

// Analyze queries active findings and folds them into threats plus
// per-standard compliance statuses.
func (s *SecurityHub) Analyze(ctx context.Context, resources []models.DiscoveredResource) (Analysis, error) {
	known := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		known[r.ID] = struct{}{}
	}

	filters := &types.AwsSecurityFindingFilters{
		RecordState: []types.StringFilter{
			{Value: aws.String("ACTIVE"), Comparison: types.StringFilterComparisonEquals},
		},
		WorkflowStatus: []types.StringFilter{
			{Value: aws.String("NEW"), Comparison: types.StringFilterComparisonEquals},
			{Value: aws.String("NOTIFIED"), Comparison: types.StringFilterComparisonEquals},
		},
	}

	analysis := Analysis{Compliance: map[string]models.ComplianceStatus{}}
	passed := map[string]int{}
	failed := map[string]int{}

	paginator := securityhub.NewGetFindingsPaginator(s.client, &securityhub.GetFindingsInput{
		Filters:    filters,
		MaxResults: aws.Int32(100),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return analysis, fmt.Errorf("failed to get findings page: %w", err)
		}
		for _, f := range page.Findings {
			resourceID := ""
			if len(f.Resources) > 0 {
				resourceID = resourceName(aws.ToString(f.Resources[0].Id))
			}

			standard := standardOf(aws.ToString(f.GeneratorId))
			if f.Compliance != nil && f.Compliance.Status == types.ComplianceStatusPassed {
				passed[standard]++
			} else {
				failed[standard]++
			}

			if _, relevant := known[resourceID]; !relevant {
				continue
			}
			analysis.Threats = append(analysis.Threats, models.ThreatFinding{
				ID:          aws.ToString(f.Id),
				ResourceID:  resourceID,
				Title:       aws.ToString(f.Title),
				Description: aws.ToString(f.Description),
				Severity:    mapSeverity(f.Severity),
			})
		}
	}

	for standard := range merge(passed, failed) {
		analysis.Compliance[standard] = complianceStatus(passed[standard], failed[standard])
	}
	return analysis, nil
}

func mapSeverity(severity *types.Severity) models.Severity {
	if severity == nil {
		return models.SeverityLow
	}
	switch severity.Label {
	case types.SeverityLabelCritical:
		return models.SeverityCritical
	case types.SeverityLabelHigh:
		return models.SeverityHigh
	case types.SeverityLabelMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func complianceStatus(passed, failed int) models.ComplianceStatus {
	total := passed + failed
	status := models.ComplianceStatus{
		TotalControls:  total,
		PassedControls: passed,
		FailedControls: failed,
	}
	if total == 0 {
		status.Status = models.ComplianceUnknown
		return status
	}
	status.Score = float64(passed) / float64(total) * 100
	switch {
	case failed == 0:
		status.Status = models.ComplianceCompliant
	case passed == 0:
		status.Status = models.ComplianceNonCompliant
	default:
		status.Status = models.CompliancePartial
	}
	return status
}

// standardOf extracts the standard name from a Security Hub generator
// id like "aws-foundational-security-best-practices/v/1.0.0/S3.4".
func standardOf(generatorID string) string {
	if generatorID == "" {
		return "unknown"
	}
	parts := strings.Split(generatorID, "/")
	switch {
	case strings.Contains(parts[0], "cis"):
		return "CIS"
	case strings.Contains(parts[0], "pci"):
		return "PCI-DSS"
	case strings.Contains(parts[0], "foundational"):
		return "FSBP"
	default:
		return parts[0]
	}
}

// resourceName reduces an ARN-style resource reference to its final id
// segment so it matches discovered resource ids.
func resourceName(ref string) string {
	for _, sep := range []string{"/", ":"} {
		if idx := strings.LastIndex(ref, sep); idx >= 0 && idx+1 < len(ref) {
			ref = ref[idx+1:]
		}
	}
	return ref
}

func merge(a, b map[string]int) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}
