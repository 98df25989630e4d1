package models

import (
	"time"
)

// JobStatus represents the lifecycle state of an import job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusScanning   JobStatus = "scanning"
	JobStatusGenerating JobStatus = "generating"
	JobStatusAnalyzing  JobStatus = "analyzing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is COMPLETE or FAILED.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// GapType classifies a security gap.
type GapType string

const (
	GapMissingEncryption GapType = "missing_encryption"
	GapPublicAccess      GapType = "public_access"
	GapNetworkSecurity   GapType = "network_security"
	GapMisconfiguration  GapType = "security_misconfiguration"
	GapSecurityThreat    GapType = "security_threat"
)

// Severity levels for security gaps, highest first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SecurityGap is a severity-tagged finding derived from a resource's
// security issues or from an external threat analysis. Immutable once
// created; many gaps may reference the same resource.
type SecurityGap struct {
	ID            string   `json:"id"`
	ResourceID    string   `json:"resource_id"`
	ResourceType  string   `json:"resource_type"`
	Type          GapType  `json:"type"`
	Severity      Severity `json:"severity"`
	Description   string   `json:"description"`
	CurrentConfig string   `json:"current_config"`
	TargetConfig  string   `json:"target_config"`
	Remediation   string   `json:"remediation"`
	Frameworks    []string `json:"frameworks"`
	Effort        string   `json:"effort"`
}

// ComplianceState is the per-framework compliance verdict.
type ComplianceState string

const (
	ComplianceCompliant    ComplianceState = "compliant"
	ComplianceNonCompliant ComplianceState = "non_compliant"
	CompliancePartial      ComplianceState = "partial"
	ComplianceUnknown      ComplianceState = "unknown"
)

// ComplianceStatus summarizes one framework's assessment. Derived once
// from an externally supplied security analysis.
type ComplianceStatus struct {
	Status         ComplianceState `json:"status"`
	Score          float64         `json:"score"`
	TotalControls  int             `json:"total_controls"`
	PassedControls int             `json:"passed_controls"`
	FailedControls int             `json:"failed_controls"`
}

// ThreatFinding is an externally supplied threat from the security
// analyzer collaborator. Severity is carried verbatim into the derived gap.
type ThreatFinding struct {
	ID          string   `json:"id"`
	ResourceID  string   `json:"resource_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// DiagramNode is one node of the job's architecture diagram payload.
type DiagramNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Service string `json:"service"`
	Group   string `json:"group,omitempty"`
}

// DiagramEdge links two diagram nodes.
type DiagramEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// DiagramData is the opaque graph payload attached to a completed job.
type DiagramData struct {
	Nodes       []DiagramNode `json:"nodes"`
	Edges       []DiagramEdge `json:"edges"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ImportJob is the consolidated result of one infrastructure import run.
// It is owned exclusively by the pipeline controller for the job's
// lifetime and immutable once its status is terminal. CompletedAt is set
// if and only if the status is terminal.
type ImportJob struct {
	ID              string                      `json:"id"`
	ProjectName     string                      `json:"project_name"`
	Status          JobStatus                   `json:"status"`
	AccountID       string                      `json:"account_id"`
	Region          string                      `json:"region"`
	Resources       []DiscoveredResource        `json:"resources"`
	Gaps            []SecurityGap               `json:"gaps"`
	Compliance      map[string]ComplianceStatus `json:"compliance"`
	IaCDocument     string                      `json:"iac_document"`
	Diagram         DiagramData                 `json:"diagram"`
	TotalCost       float64                     `json:"total_monthly_cost"`
	SecurityScore   int                         `json:"security_score"`
	Recommendations []string                    `json:"recommendations"`
	CreatedAt       time.Time                   `json:"created_at"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
}

// GapCounts tallies gaps by severity.
func (j *ImportJob) GapCounts() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, g := range j.Gaps {
		counts[g.Severity]++
	}
	return counts
}
