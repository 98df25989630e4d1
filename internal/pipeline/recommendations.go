package pipeline

import (
	"fmt"
	"sort"

	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/pkg/models"
)

// gapTypeOrder fixes the summary ordering so two runs over the same
// findings produce identical recommendation lists.
var gapTypeOrder = []models.GapType{
	models.GapPublicAccess,
	models.GapMissingEncryption,
	models.GapNetworkSecurity,
	models.GapMisconfiguration,
	models.GapSecurityThreat,
}

var gapTypeAdvice = map[models.GapType]string{
	models.GapPublicAccess:      "Restrict public access: %d resource configuration(s) allow exposure to the internet",
	models.GapMissingEncryption: "Enable encryption at rest for %d resource configuration(s)",
	models.GapNetworkSecurity:   "Tighten network boundaries: %d network security gap(s) detected",
	models.GapMisconfiguration:  "Review %d security misconfiguration(s) against your baseline",
	models.GapSecurityThreat:    "Investigate %d active threat finding(s) reported by the security analyzer",
}

// generalHardening closes every recommendation list, so the list is
// never empty even for a clean account.
var generalHardening = []string{
	"Enable CloudTrail logging in all regions for audit coverage",
	"Apply least-privilege IAM policies and rotate long-lived credentials",
	"Tag all imported resources with owner and environment for accountability",
}

// buildRecommendations produces the ordered, deterministic advice list
// for a completed job: urgent items first, then per-category summaries,
// compliance shortfalls, a cost note when spend warrants review, and
// finally the standing hardening advice.
func buildRecommendations(job *models.ImportJob, costThreshold float64) []string {
	var recs []string

	counts := job.GapCounts()
	if n := counts[models.SeverityCritical]; n > 0 {
		recs = append(recs, fmt.Sprintf("URGENT: remediate %d critical security gap(s) before importing this infrastructure into change management", n))
	}
	if n := counts[models.SeverityHigh]; n > 0 {
		recs = append(recs, fmt.Sprintf("Prioritize %d high-severity security gap(s) in the next remediation cycle", n))
	}

	byType := make(map[models.GapType]int, len(gapTypeOrder))
	for _, gap := range job.Gaps {
		byType[gap.Type]++
	}
	for _, t := range gapTypeOrder {
		if n := byType[t]; n > 0 {
			recs = append(recs, fmt.Sprintf(gapTypeAdvice[t], n))
		}
	}

	recs = append(recs, complianceShortfalls(job.Compliance)...)

	if job.TotalCost > costThreshold {
		recs = append(recs, fmt.Sprintf("Review estimated monthly spend of $%.2f; consider rightsizing or reserved capacity", job.TotalCost))
	}

	return append(recs, generalHardening...)
}

func complianceShortfalls(compliance map[string]models.ComplianceStatus) []string {
	frameworks := make([]string, 0, len(compliance))
	for name, status := range compliance {
		if status.Status == models.ComplianceNonCompliant || status.Status == models.CompliancePartial {
			frameworks = append(frameworks, name)
		}
	}
	sort.Strings(frameworks)

	recs := make([]string, 0, len(frameworks))
	for _, name := range frameworks {
		status := compliance[name]
		recs = append(recs, fmt.Sprintf("Address %s compliance: %d of %d controls failing",
			name, status.FailedControls, status.TotalControls))
	}
	return recs
}

// failureRecommendations is the advice attached to a FAILED job. The
// only fatal condition is an empty discovery result, but the message
// still covers the generic error path.
func failureRecommendations(err error) []string {
	msg := "Import failed before any resources could be processed"
	if pipeerr.IsKind(err, pipeerr.KindNoResourcesFound) {
		msg = "No importable resources were found; verify the account, region and service filters"
	}
	return []string{
		msg,
		"Confirm the credentials grant read access to EC2, S3, RDS and the tagging API",
	}
}
