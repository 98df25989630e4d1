// Package cost produces rough monthly cost estimates for discovered
// resources from static per-service base rates and simple size
// multipliers. Estimates are heuristics for prioritization, not billing
// data.
package cost

import (
	"strings"

	"github.com/catherinevee/importmgr/pkg/models"
)

// baseRates are monthly USD estimates per service.
var baseRates = map[string]float64{
	"ec2":      30.0,
	"s3":       5.0,
	"rds":      50.0,
	"lambda":   2.0,
	"dynamodb": 10.0,
	"elb":      20.0,
}

// defaultRate applies to services with no known base rate.
const defaultRate = 10.0

// Estimator estimates per-resource monthly cost.
type Estimator struct{}

// NewEstimator creates a cost estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate returns a non-negative monthly cost for the resource. It
// never fails; unknown services get the generic default rate.
func (e *Estimator) Estimate(service string, resource models.DiscoveredResource) float64 {
	rate, ok := baseRates[service]
	if !ok {
		rate = defaultRate
	}

	rate *= sizeMultiplier(resource)
	if rate < 0 {
		return 0
	}
	return rate
}

// sizeMultiplier reads size keywords out of the resource's detail map.
func sizeMultiplier(resource models.DiscoveredResource) float64 {
	multiplier := 1.0

	size := detailString(resource, "instance_type")
	if size == "" {
		size = detailString(resource, "instance_class")
	}
	switch {
	case strings.Contains(size, "metal"), strings.Contains(size, "24xlarge"):
		multiplier *= 16
	case strings.Contains(size, "4xlarge"):
		multiplier *= 8
	case strings.Contains(size, "2xlarge"):
		multiplier *= 6
	case strings.Contains(size, "xlarge"):
		multiplier *= 4
	case strings.Contains(size, "large"):
		multiplier *= 2
	case strings.Contains(size, "micro"), strings.Contains(size, "nano"):
		multiplier *= 0.25
	case strings.Contains(size, "small"):
		multiplier *= 0.5
	}

	engine := detailString(resource, "engine")
	if strings.Contains(engine, "aurora") {
		multiplier *= 1.5
	}
	if v, ok := resource.Details["multi_az"].(bool); ok && v {
		multiplier *= 2
	}

	return multiplier
}

func detailString(resource models.DiscoveredResource, key string) string {
	v, _ := resource.Details[key].(string)
	return strings.ToLower(v)
}
