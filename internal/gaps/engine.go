// Package gaps converts per-resource security issues and external threat
// findings into structured, severity-tagged SecurityGap records with
// remediation snippets. Gap derivation never fails the job: a resource
// whose issues cannot be classified contributes no gaps.
package gaps

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// Engine derives security gaps.
type Engine struct {
	log logger.Logger
}

// NewEngine creates a gap derivation engine.
func NewEngine() *Engine {
	return &Engine{log: logger.New("gaps")}
}

// Derive builds one SecurityGap per issue on every non-compliant
// resource, then appends externally supplied threats as gaps of type
// security_threat with their severity carried verbatim.
func (e *Engine) Derive(resources []models.DiscoveredResource, threats []models.ThreatFinding) []models.SecurityGap {
	gaps := make([]models.SecurityGap, 0)

	for _, resource := range resources {
		resourceGaps, err := e.deriveResourceGaps(resource)
		if err != nil {
			e.log.Warn("gap classification failed, resource skipped",
				logger.String("resource", resource.ID),
				logger.Error(err))
			continue
		}
		gaps = append(gaps, resourceGaps...)
	}

	for _, threat := range threats {
		gaps = append(gaps, threatGap(threat))
	}

	return gaps
}

// deriveResourceGaps classifies every issue on one resource. A panic in
// classification is converted to a classification_error so a single bad
// record never aborts the batch.
func (e *Engine) deriveResourceGaps(resource models.DiscoveredResource) (gaps []models.SecurityGap, err *pipeerr.PipelineError) {
	defer func() {
		if r := recover(); r != nil {
			gaps = nil
			err = pipeerr.New(pipeerr.KindClassificationError, "gaps",
				fmt.Sprintf("panic classifying resource %s: %v", resource.ID, r))
		}
	}()

	for _, issue := range resource.SecurityIssues {
		gapType := classifyType(issue)
		severity := classifySeverity(issue)
		gaps = append(gaps, models.SecurityGap{
			ID:            uuid.New().String(),
			ResourceID:    resource.ID,
			ResourceType:  resource.Type,
			Type:          gapType,
			Severity:      severity,
			Description:   issue,
			CurrentConfig: currentConfig(resource, gapType),
			TargetConfig:  targetConfig(gapType),
			Remediation:   remediationSnippet(resource, gapType),
			Frameworks:    affectedFrameworks(gapType),
			Effort:        remediationEffort(severity),
		})
	}
	return gaps, nil
}

func threatGap(threat models.ThreatFinding) models.SecurityGap {
	severity := threat.Severity
	if severity == "" {
		severity = models.SeverityLow
	}
	return models.SecurityGap{
		ID:           uuid.New().String(),
		ResourceID:   threat.ResourceID,
		ResourceType: models.UnknownComponent,
		Type:         models.GapSecurityThreat,
		Severity:     severity,
		Description:  threat.Title + ": " + threat.Description,
		TargetConfig: "threat remediated per analyzer guidance",
		Remediation:  "# Review the threat finding and remediate per your incident response process.\n",
		Frameworks:   affectedFrameworks(models.GapSecurityThreat),
		Effort:       remediationEffort(severity),
	}
}

// classifySeverity applies the keyword heuristic. Public exposure is
// checked before encryption so an issue mentioning both reads as high.
func classifySeverity(issue string) models.Severity {
	lower := strings.ToLower(issue)
	switch {
	case strings.Contains(lower, "public") || strings.Contains(lower, "exposed"):
		return models.SeverityHigh
	case strings.Contains(lower, "encrypt"):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func classifyType(issue string) models.GapType {
	lower := strings.ToLower(issue)
	switch {
	case strings.Contains(lower, "encrypt"):
		return models.GapMissingEncryption
	case strings.Contains(lower, "public") || strings.Contains(lower, "exposed"):
		return models.GapPublicAccess
	case strings.Contains(lower, "security group") || strings.Contains(lower, "network") || strings.Contains(lower, "firewall"):
		return models.GapNetworkSecurity
	default:
		return models.GapMisconfiguration
	}
}

func currentConfig(resource models.DiscoveredResource, gapType models.GapType) string {
	switch gapType {
	case models.GapMissingEncryption:
		return fmt.Sprintf("%s %q has encryption disabled", resource.Type, resource.ID)
	case models.GapPublicAccess:
		return fmt.Sprintf("%s %q is reachable from the public internet", resource.Type, resource.ID)
	default:
		return fmt.Sprintf("%s %q current configuration", resource.Type, resource.ID)
	}
}

func targetConfig(gapType models.GapType) string {
	switch gapType {
	case models.GapMissingEncryption:
		return "encryption at rest enabled"
	case models.GapPublicAccess:
		return "public access disabled"
	case models.GapNetworkSecurity:
		return "network access restricted to known CIDR ranges"
	default:
		return "configuration hardened per provider baseline"
	}
}

// remediationSnippet synthesizes a small IaC fragment per gap type.
func remediationSnippet(resource models.DiscoveredResource, gapType models.GapType) string {
	name := sanitizeName(resource.ID)
	switch gapType {
	case models.GapMissingEncryption:
		switch resource.Service {
		case "s3":
			return fmt.Sprintf(`resource "aws_s3_bucket_server_side_encryption_configuration" "%s" {
  bucket = %q
  rule {
    apply_server_side_encryption_by_default {
      sse_algorithm = "aws:kms"
    }
  }
}
`, name, resource.ID)
		default:
			return fmt.Sprintf("# Enable storage encryption on %s %q.\n", resource.Type, resource.ID)
		}
	case models.GapPublicAccess:
		switch resource.Service {
		case "s3":
			return fmt.Sprintf(`resource "aws_s3_bucket_public_access_block" "%s" {
  bucket                  = %q
  block_public_acls       = true
  block_public_policy     = true
  ignore_public_acls      = true
  restrict_public_buckets = true
}
`, name, resource.ID)
		case "rds":
			return fmt.Sprintf("# Set publicly_accessible = false on aws_db_instance %q.\n", resource.ID)
		default:
			return fmt.Sprintf("# Remove the public address from %s %q or front it with a load balancer.\n", resource.Type, resource.ID)
		}
	case models.GapNetworkSecurity:
		return fmt.Sprintf("# Restrict security group ingress for %s %q to known CIDR ranges.\n", resource.Type, resource.ID)
	default:
		return fmt.Sprintf("# Review the configuration of %s %q against the provider hardening baseline.\n", resource.Type, resource.ID)
	}
}

func affectedFrameworks(gapType models.GapType) []string {
	switch gapType {
	case models.GapMissingEncryption:
		return []string{"CIS", "PCI-DSS", "HIPAA"}
	case models.GapPublicAccess:
		return []string{"CIS", "PCI-DSS", "SOC2"}
	case models.GapNetworkSecurity:
		return []string{"CIS", "SOC2"}
	case models.GapSecurityThreat:
		return []string{"SOC2"}
	default:
		return []string{"CIS"}
	}
}

func remediationEffort(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "hours"
	case models.SeverityMedium:
		return "hours to days"
	default:
		return "days"
	}
}

func sanitizeName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "resource"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "r_" + name
	}
	return name
}
