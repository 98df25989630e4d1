package discovery

import (
	"context"
	"sort"
	"time"

	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// highValueServices are enumerated directly in addition to the tag index.
// The untagged sweep re-queries the same set: the tag index misses
// resources carrying no tags at all, so the overlap is intentional.
var highValueServices = []string{"ec2", "s3", "rds"}

// Config bounds one discovery run.
type Config struct {
	// ResourceCap is the hard cap on resources processed per run.
	ResourceCap int
	// StrategyTimeout bounds each individual strategy.
	StrategyTimeout time.Duration
	// JoinTimeout bounds the wait for all strategies to finish. On
	// expiry the engine proceeds with whatever results have arrived.
	JoinTimeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ResourceCap:     100,
		StrategyTimeout: 60 * time.Second,
		JoinTimeout:     90 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.ResourceCap <= 0 {
		c.ResourceCap = 100
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 60 * time.Second
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = c.StrategyTimeout + 30*time.Second
	}
	return c
}

// Engine discovers cloud resources by fanning out three independent
// strategies and merging their results with first-seen-wins
// deduplication on (service, resource id).
type Engine struct {
	client CloudClient
	cfg    Config
	log    logger.Logger
}

// NewEngine creates a discovery engine for one already-authenticated
// cloud client.
func NewEngine(client CloudClient, cfg Config) *Engine {
	return &Engine{
		client: client,
		cfg:    cfg.withDefaults(),
		log:    logger.New("discovery"),
	}
}

type strategyFunc func(ctx context.Context, services []string, filters map[string]string) ([]models.DiscoveredResource, error)

type strategyResult struct {
	index     int
	name      string
	resources []models.DiscoveredResource
	err       *pipeerr.PipelineError
}

// Discover runs all strategies concurrently and returns the merged,
// deduplicated resources grouped by service. A strategy failure or
// timeout contributes zero resources; only a fully empty union is an
// error (kind no_resources_found).
func (e *Engine) Discover(ctx context.Context, services []string, filters map[string]string) (map[string][]models.DiscoveredResource, error) {
	strategies := []struct {
		name string
		fn   strategyFunc
	}{
		{"direct", e.discoverDirect},
		{"tagged", e.discoverTagged},
		{"untagged", e.discoverUntaggedSweep},
	}

	results := make(chan strategyResult, len(strategies))
	for i, s := range strategies {
		go func(index int, name string, fn strategyFunc) {
			strategyCtx, cancel := context.WithTimeout(ctx, e.cfg.StrategyTimeout)
			defer cancel()

			start := time.Now()
			resources, err := fn(strategyCtx, services, filters)
			res := strategyResult{index: index, name: name, resources: resources}
			if err != nil {
				res.err = classifyStrategyError(strategyCtx, err, name)
				res.resources = nil
			}
			e.log.Debug("strategy finished",
				logger.String("strategy", name),
				logger.Int("resources", len(res.resources)),
				logger.Duration("elapsed", time.Since(start)))
			results <- res
		}(i, s.name, s.fn)
	}

	// Join with a bounded wait. The timeout is a soft cancellation: the
	// engine proceeds with partial results, it does not abort work that
	// has already been collected.
	collected := make([]strategyResult, 0, len(strategies))
	joinTimer := time.NewTimer(e.cfg.JoinTimeout)
	defer joinTimer.Stop()

collect:
	for range strategies {
		select {
		case res := <-results:
			collected = append(collected, res)
		case <-joinTimer.C:
			e.log.Warn("strategy join timed out, proceeding with partial results",
				logger.Int("strategies_joined", len(collected)))
			break collect
		}
	}

	// Merge in declaration order so first-seen-wins is deterministic
	// regardless of completion order.
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	merged := e.merge(collected, services)
	total := 0
	for _, rs := range merged {
		total += len(rs)
	}
	if total == 0 {
		return nil, pipeerr.New(pipeerr.KindNoResourcesFound, "discovery",
			"no resources found across any discovery strategy")
	}

	e.log.Info("discovery complete",
		logger.Int("resources", total),
		logger.Int("services", len(merged)))
	return merged, nil
}

func (e *Engine) merge(results []strategyResult, services []string) map[string][]models.DiscoveredResource {
	allowed := serviceSet(services)
	seen := make(map[string]struct{})
	merged := make(map[string][]models.DiscoveredResource)
	total := 0

	for _, res := range results {
		if res.err != nil {
			e.log.Warn("discovery strategy failed",
				logger.String("strategy", res.name),
				logger.Error(res.err))
			continue
		}
		for _, r := range res.resources {
			if total >= e.cfg.ResourceCap {
				return merged
			}
			if allowed != nil {
				if _, ok := allowed[r.Service]; !ok {
					continue
				}
			}
			if _, dup := seen[r.Key()]; dup {
				continue
			}
			seen[r.Key()] = struct{}{}
			merged[r.Service] = append(merged[r.Service], r)
			total++
		}
	}
	return merged
}

// discoverDirect enumerates the high-value services one by one.
func (e *Engine) discoverDirect(ctx context.Context, services []string, _ map[string]string) ([]models.DiscoveredResource, error) {
	return e.enumerateHighValue(ctx, services)
}

// discoverUntaggedSweep re-runs the direct enumeration as a safety net
// for resources the tag index cannot see.
func (e *Engine) discoverUntaggedSweep(ctx context.Context, services []string, _ map[string]string) ([]models.DiscoveredResource, error) {
	return e.enumerateHighValue(ctx, services)
}

func (e *Engine) enumerateHighValue(ctx context.Context, services []string) ([]models.DiscoveredResource, error) {
	allowed := serviceSet(services)
	var all []models.DiscoveredResource
	var lastErr error

	for _, svc := range highValueServices {
		if allowed != nil {
			if _, ok := allowed[svc]; !ok {
				continue
			}
		}
		if len(all) >= e.cfg.ResourceCap {
			break
		}
		var (
			resources []models.DiscoveredResource
			err       error
		)
		switch svc {
		case "ec2":
			resources, err = e.client.ListComputeInstances(ctx)
		case "s3":
			resources, err = e.client.ListStorageBuckets(ctx)
		case "rds":
			resources, err = e.client.ListDatabases(ctx)
		}
		if err != nil {
			e.log.Warn("service enumeration failed",
				logger.String("service", svc),
				logger.Error(err))
			lastErr = err
			continue
		}
		all = append(all, resources...)
	}

	// A partial result is still a result; only a fully empty
	// enumeration surfaces the underlying error.
	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return capResources(all, e.cfg.ResourceCap), nil
}

// discoverTagged enumerates via the provider's tag index.
func (e *Engine) discoverTagged(ctx context.Context, services []string, filters map[string]string) ([]models.DiscoveredResource, error) {
	return e.client.ListTaggedResources(ctx, services, filters, e.cfg.ResourceCap)
}

func classifyStrategyError(ctx context.Context, err error, strategy string) *pipeerr.PipelineError {
	kind := pipeerr.KindDiscoveryError
	if ctx.Err() == context.DeadlineExceeded {
		kind = pipeerr.KindDiscoveryTimeout
	}
	return pipeerr.Wrap(err, kind, "discovery", "strategy "+strategy+" failed").
		WithDetail("strategy", strategy)
}

func serviceSet(services []string) map[string]struct{} {
	if len(services) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(services))
	for _, s := range services {
		set[s] = struct{}{}
	}
	return set
}

func capResources(resources []models.DiscoveredResource, limit int) []models.DiscoveredResource {
	if len(resources) > limit {
		return resources[:limit]
	}
	return resources
}
