// Package pipeline drives the infrastructure import job: discovery,
// code generation, security analysis, gap derivation, cost estimation
// and final aggregation. Every stage after discovery is individually
// guarded; a stage failure contributes a safe default and the job still
// completes. Only an empty discovery result fails the job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catherinevee/importmgr/internal/analyzer"
	"github.com/catherinevee/importmgr/internal/codegen"
	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// Discoverer is the resource discovery stage.
type Discoverer interface {
	Discover(ctx context.Context, services []string, filters map[string]string) (map[string][]models.DiscoveredResource, error)
}

// Checker runs per-resource security checks.
type Checker interface {
	Check(ctx context.Context, service string, resource models.DiscoveredResource) []string
}

// GapDeriver converts issues and threats into security gaps.
type GapDeriver interface {
	Derive(resources []models.DiscoveredResource, threats []models.ThreatFinding) []models.SecurityGap
}

// CostEstimator estimates per-resource monthly cost.
type CostEstimator interface {
	Estimate(service string, resource models.DiscoveredResource) float64
}

// Generator produces the IaC document.
type Generator interface {
	Generate(ctx context.Context, byService map[string][]models.DiscoveredResource, projectName string) codegen.Output
}

// DiagramBuilder produces the job's diagram payload.
type DiagramBuilder interface {
	Build(resources []models.DiscoveredResource) models.DiagramData
}

// ScoreWeights are the per-severity score deductions.
type ScoreWeights struct {
	Critical int
	High     int
	Medium   int
}

// Config is per-job policy. The defaults mirror the documented
// constants; they are configuration, not law.
type Config struct {
	AccountID           string
	Region              string
	Weights             ScoreWeights
	CostReviewThreshold float64
	CheckConcurrency    int
}

// DefaultConfig returns the documented policy defaults.
func DefaultConfig() Config {
	return Config{
		Weights:             ScoreWeights{Critical: 20, High: 10, Medium: 5},
		CostReviewThreshold: 1000,
		CheckConcurrency:    8,
	}
}

func (c Config) withDefaults() Config {
	if c.Weights == (ScoreWeights{}) {
		c.Weights = ScoreWeights{Critical: 20, High: 10, Medium: 5}
	}
	if c.CostReviewThreshold <= 0 {
		c.CostReviewThreshold = 1000
	}
	if c.CheckConcurrency <= 0 {
		c.CheckConcurrency = 8
	}
	return c
}

// Controller owns one import job's state machine for its lifetime. All
// collaborators are injected; there is no global service lookup.
type Controller struct {
	discoverer Discoverer
	checker    Checker
	gapEngine  GapDeriver
	estimator  CostEstimator
	generator  Generator
	analyzer   analyzer.Analyzer
	diagram    DiagramBuilder
	cfg        Config
	log        logger.Logger
}

// NewController wires the pipeline stages together. A nil analyzer or
// diagram builder falls back to the no-op implementations.
func NewController(
	discoverer Discoverer,
	checker Checker,
	gapEngine GapDeriver,
	estimator CostEstimator,
	generator Generator,
	securityAnalyzer analyzer.Analyzer,
	diagram DiagramBuilder,
	cfg Config,
) *Controller {
	if securityAnalyzer == nil {
		securityAnalyzer = analyzer.Noop{}
	}
	if diagram == nil {
		diagram = DefaultDiagramBuilder{}
	}
	return &Controller{
		discoverer: discoverer,
		checker:    checker,
		gapEngine:  gapEngine,
		estimator:  estimator,
		generator:  generator,
		analyzer:   securityAnalyzer,
		diagram:    diagram,
		cfg:        cfg.withDefaults(),
		log:        logger.New("pipeline"),
	}
}

// RunImport executes the full pipeline and returns the terminal job.
// The returned job is COMPLETE unless discovery found nothing at all.
// A panic that escapes a stage guard still yields a FAILED job rather
// than unwinding into the caller.
func (c *Controller) RunImport(ctx context.Context, projectName string, servicesFilter []string, resourceFilters map[string]string) (job *models.ImportJob) {
	job = &models.ImportJob{
		ID:          uuid.New().String(),
		ProjectName: projectName,
		Status:      models.JobStatusPending,
		AccountID:   c.cfg.AccountID,
		Region:      c.cfg.Region,
		Compliance:  map[string]models.ComplianceStatus{},
		CreatedAt:   time.Now(),
	}
	log := c.log.WithContext(ctx).WithFields(logger.String("job_id", job.ID))

	defer func() {
		if r := recover(); r != nil && !job.Status.IsTerminal() {
			pe := pipeerr.New(pipeerr.KindInternal, "pipeline",
				fmt.Sprintf("unrecoverable panic: %v", r))
			log.Error("pipeline panicked, failing job", logger.Error(pe))
			c.fail(job, pe)
		}
	}()

	// SCANNING
	c.transition(job, models.JobStatusScanning)
	byService, err := c.discoverer.Discover(ctx, servicesFilter, resourceFilters)
	if err != nil {
		log.Error("discovery failed", logger.Error(err))
		c.fail(job, err)
		return job
	}
	job.Resources = flatten(byService)

	// GENERATING
	c.transition(job, models.JobStatusGenerating)
	generated := runGuarded(log, "codegen", func() (codegen.Output, error) {
		return c.generator.Generate(ctx, byService, projectName), nil
	})
	output := generated.OrDefault(codegen.Output{})
	job.IaCDocument = output.IaCText
	attachSnippets(job, output)

	// ANALYZING
	c.transition(job, models.JobStatusAnalyzing)
	c.runChecks(ctx, log, job)

	analysisResult := runGuarded(log, "analyzer", func() (analyzer.Analysis, error) {
		return c.analyzer.Analyze(ctx, job.Resources)
	})
	analysis := analysisResult.OrDefault(analyzer.Analysis{Compliance: map[string]models.ComplianceStatus{}})
	if analysis.Compliance != nil {
		job.Compliance = analysis.Compliance
	}

	gapsResult := runGuarded(log, "gaps", func() ([]models.SecurityGap, error) {
		return c.gapEngine.Derive(job.Resources, analysis.Threats), nil
	})
	job.Gaps = gapsResult.OrDefault([]models.SecurityGap{})

	costResult := runGuarded(log, "cost", func() (float64, error) {
		return c.estimateCosts(job), nil
	})
	job.TotalCost = costResult.OrDefault(0)

	diagramResult := runGuarded(log, "diagram", func() (models.DiagramData, error) {
		return c.diagram.Build(job.Resources), nil
	})
	job.Diagram = diagramResult.OrDefault(models.DiagramData{})

	job.SecurityScore = securityScore(c.cfg.Weights, job.Gaps)
	job.Recommendations = buildRecommendations(job, c.cfg.CostReviewThreshold)

	c.transition(job, models.JobStatusComplete)
	log.Info("import complete",
		logger.Int("resources", len(job.Resources)),
		logger.Int("gaps", len(job.Gaps)),
		logger.Int("score", job.SecurityScore))
	return job
}

// runChecks evaluates per-resource security checks with bounded
// concurrency. Checks are pure and independent; each goroutine writes
// only its own resource slot.
func (c *Controller) runChecks(ctx context.Context, log logger.Logger, job *models.ImportJob) {
	sem := make(chan struct{}, c.cfg.CheckConcurrency)
	var wg sync.WaitGroup

	for i := range job.Resources {
		wg.Add(1)
		go func(resource *models.DiscoveredResource) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := runGuarded(log, "security", func() ([]string, error) {
				return c.checker.Check(ctx, resource.Service, *resource), nil
			})
			resource.SecurityIssues = result.OrDefault(nil)
			resource.Compliant = len(resource.SecurityIssues) == 0
		}(&job.Resources[i])
	}
	wg.Wait()
}

func (c *Controller) estimateCosts(job *models.ImportJob) float64 {
	total := 0.0
	for i := range job.Resources {
		cost := c.estimator.Estimate(job.Resources[i].Service, job.Resources[i])
		if cost < 0 {
			cost = 0
		}
		job.Resources[i].MonthlyCost = cost
		total += cost
	}
	return total
}

func (c *Controller) transition(job *models.ImportJob, next models.JobStatus) {
	c.log.Debug("job transition",
		logger.String("job_id", job.ID),
		logger.String("from", string(job.Status)),
		logger.String("to", string(next)))
	job.Status = next
	if next.IsTerminal() {
		now := time.Now()
		job.CompletedAt = &now
	}
}

func (c *Controller) fail(job *models.ImportJob, err error) {
	job.Recommendations = failureRecommendations(err)
	c.transition(job, models.JobStatusFailed)
}

// runGuarded wraps one stage so that errors and panics become an
// explicit failed StageResult instead of escaping the pipeline.
func runGuarded[T any](log logger.Logger, stage string, fn func() (T, error)) (result pipeerr.StageResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			pe := pipeerr.New(pipeerr.KindInternal, stage, fmt.Sprintf("stage panicked: %v", r))
			log.Error("stage panicked, substituting default output",
				logger.String("stage", stage), logger.Error(pe))
			result = pipeerr.Fail[T](pe)
		}
	}()

	value, err := fn()
	if err != nil {
		var pe *pipeerr.PipelineError
		if !errors.As(err, &pe) {
			pe = pipeerr.Wrap(err, pipeerr.KindInternal, stage, "stage failed")
		}
		log.Warn("stage failed, substituting default output",
			logger.String("stage", stage), logger.Error(pe))
		return pipeerr.Fail[T](pe)
	}
	return pipeerr.Ok(value)
}

// flatten orders resources by service name so job output is
// deterministic for a given discovery result.
func flatten(byService map[string][]models.DiscoveredResource) []models.DiscoveredResource {
	services := make([]string, 0, len(byService))
	for svc := range byService {
		services = append(services, svc)
	}
	sort.Strings(services)

	var all []models.DiscoveredResource
	for _, svc := range services {
		all = append(all, byService[svc]...)
	}
	return all
}

func attachSnippets(job *models.ImportJob, output codegen.Output) {
	for i := range job.Resources {
		key := job.Resources[i].Key()
		if snippet, ok := output.Snippets[key]; ok {
			job.Resources[i].IaCSnippet = snippet
		} else if cmd, ok := output.ResourceMapping[key]; ok {
			job.Resources[i].IaCSnippet = cmd
		}
	}
}
