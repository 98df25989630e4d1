package models

// DiscoveredResource represents a single cloud resource surfaced by a
// discovery run. It is created during discovery and enriched by the
// security-check and cost-estimation stages; after the pipeline completes
// it is never mutated again.
type DiscoveredResource struct {
	Service        string                 `json:"service"`
	Type           string                 `json:"type"`
	ID             string                 `json:"id"`
	Region         string                 `json:"region"`
	Tags           map[string]string      `json:"tags"`
	Details        map[string]interface{} `json:"details"`
	MonthlyCost    float64                `json:"monthly_cost"`
	SecurityIssues []string               `json:"security_issues"`
	Compliant      bool                   `json:"compliant"`
	IaCSnippet     string                 `json:"iac_snippet,omitempty"`
}

// Key returns the identity used for cross-strategy deduplication.
func (r DiscoveredResource) Key() string {
	return r.Service + "/" + r.ID
}

// ResourceLocator is the parsed form of an ARN-like resource locator.
// Components that could not be resolved hold the "unknown" sentinel.
type ResourceLocator struct {
	Service    string `json:"service"`
	Type       string `json:"resource_type"`
	ResourceID string `json:"resource_id"`
	Region     string `json:"region"`
}

// UnknownComponent is the sentinel for locator fields that could not be
// parsed. A malformed locator never aborts a discovery batch.
const UnknownComponent = "unknown"
