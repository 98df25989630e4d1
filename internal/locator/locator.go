// Package locator parses ARN-style resource locators into their service,
// type, id and region components. Parsing never fails: components that
// cannot be resolved come back as the "unknown" sentinel so that one bad
// locator never aborts a discovery batch.
package locator

import (
	"strings"

	"github.com/catherinevee/importmgr/pkg/models"
)

// Locator field positions within a colon-delimited ARN:
// arn:partition:service:region:account-id:resource
const (
	fieldService  = 2
	fieldRegion   = 3
	fieldResource = 5
	minFields     = 6
)

// Resolve parses an ARN-like locator string. Missing or empty components
// resolve to models.UnknownComponent; everything downstream of a missing
// field is unknown as well.
func Resolve(arn string) models.ResourceLocator {
	loc := models.ResourceLocator{
		Service:    models.UnknownComponent,
		Type:       models.UnknownComponent,
		ResourceID: models.UnknownComponent,
		Region:     models.UnknownComponent,
	}

	arn = strings.TrimSpace(arn)
	if arn == "" {
		return loc
	}

	parts := strings.SplitN(arn, ":", minFields)

	if len(parts) > fieldService && parts[fieldService] != "" {
		loc.Service = parts[fieldService]
	}
	if len(parts) > fieldRegion && parts[fieldRegion] != "" {
		loc.Region = parts[fieldRegion]
	}
	if len(parts) < minFields {
		return loc
	}

	resource := parts[fieldResource]
	if resource == "" {
		return loc
	}

	// The resource segment is either "type/id", "type:id", or a bare id
	// (S3 bucket names arrive this way).
	switch {
	case strings.Contains(resource, "/"):
		segs := strings.SplitN(resource, "/", 2)
		if segs[0] != "" {
			loc.Type = segs[0]
		}
		if segs[1] != "" {
			loc.ResourceID = segs[1]
		}
	case strings.Contains(resource, ":"):
		segs := strings.SplitN(resource, ":", 2)
		if segs[0] != "" {
			loc.Type = segs[0]
		}
		if segs[1] != "" {
			loc.ResourceID = segs[1]
		}
	default:
		loc.Type = loc.Service
		loc.ResourceID = resource
	}

	return loc
}
