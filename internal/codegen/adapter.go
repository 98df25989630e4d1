// Package codegen turns discovered resources into one IaC document. It
// prefers an external generation tool invoked per service as a bounded
// subprocess and falls back to a deterministic minimal generator, so the
// job always ends up with some IaC text. The adapter never returns an
// error to its caller.
package codegen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pipeerr "github.com/catherinevee/importmgr/internal/errors"
	"github.com/catherinevee/importmgr/internal/logger"
	"github.com/catherinevee/importmgr/pkg/models"
)

// Config controls the adapter.
type Config struct {
	// ToolPath is the external IaC-generation binary. Empty disables
	// tool invocation and goes straight to the fallback generator.
	ToolPath string
	// ToolTimeout bounds each per-service invocation.
	ToolTimeout time.Duration
	// OutputDir is where the tool is told to write its files. Empty
	// means a fresh temp directory per job.
	OutputDir string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ToolPath:    "terraformer",
		ToolTimeout: 300 * time.Second,
	}
}

// Output is the merged generation result.
type Output struct {
	// IaCText is the merged document with one canonical header.
	IaCText string
	// ResourceMapping maps resource keys to terraform import commands.
	ResourceMapping map[string]string
	// Snippets maps resource keys to their individual IaC blocks. Only
	// populated on the fallback path, where blocks are per-resource.
	Snippets map[string]string
	// UsedFallback reports whether the deterministic generator produced
	// the document.
	UsedFallback bool
}

// Adapter generates IaC for discovered resources.
type Adapter struct {
	runner Runner
	cfg    Config
	region string
	log    logger.Logger
}

// NewAdapter creates a code generation adapter. runner may be nil, which
// forces the fallback path.
func NewAdapter(runner Runner, region string, cfg Config) *Adapter {
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 300 * time.Second
	}
	return &Adapter{
		runner: runner,
		cfg:    cfg,
		region: region,
		log:    logger.New("codegen"),
	}
}

type toolResult struct {
	service  string
	fragment string
	err      *pipeerr.PipelineError
}

// Generate produces the merged IaC document for all services. Tool
// failures are logged, never surfaced: if the tool fails or emits
// nothing for any service, the whole job is regenerated with the
// deterministic fallback so the document has uniform provenance.
func (a *Adapter) Generate(ctx context.Context, byService map[string][]models.DiscoveredResource, projectName string) Output {
	gen := fallbackGenerator{region: a.region}
	services := sortedServices(byService)

	fragments, ok := a.runTool(ctx, byService, services)
	usedFallback := !ok

	snippets := make(map[string]string)
	if usedFallback {
		fragments = make(map[string]string, len(services))
		for _, svc := range services {
			fragment, svcSnippets := gen.generateService(svc, byService[svc])
			fragments[svc] = fragment
			for k, v := range svcSnippets {
				snippets[k] = v
			}
		}
	}

	var doc strings.Builder
	doc.WriteString(gen.header(projectName))
	for _, svc := range services {
		doc.WriteString(stripBoilerplate(fragments[svc]))
		doc.WriteString("\n")
	}

	return Output{
		IaCText:         doc.String(),
		ResourceMapping: importCommands(byService),
		Snippets:        snippets,
		UsedFallback:    usedFallback,
	}
}

// runTool invokes the external tool once per service concurrently. It
// reports ok=false when the tool is unavailable or any service yields
// no output.
func (a *Adapter) runTool(ctx context.Context, byService map[string][]models.DiscoveredResource, services []string) (map[string]string, bool) {
	if a.runner == nil || a.cfg.ToolPath == "" || len(services) == 0 {
		return nil, false
	}

	outputDir := a.cfg.OutputDir
	if outputDir == "" {
		dir, err := os.MkdirTemp("", "importmgr-codegen-*")
		if err != nil {
			a.log.Warn("could not create tool output directory", logger.Error(err))
			return nil, false
		}
		defer os.RemoveAll(dir)
		outputDir = dir
	}

	results := make(chan toolResult, len(services))
	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		go func(service string) {
			defer wg.Done()
			results <- a.runToolForService(ctx, service, byService[service], outputDir)
		}(svc)
	}
	wg.Wait()
	close(results)

	fragments := make(map[string]string, len(services))
	ok := true
	for res := range results {
		if res.err != nil {
			a.log.Warn("tool invocation failed, falling back to deterministic generation",
				logger.String("service", res.service),
				logger.Error(res.err))
			ok = false
			continue
		}
		fragments[res.service] = res.fragment
	}
	return fragments, ok
}

func (a *Adapter) runToolForService(ctx context.Context, service string, resources []models.DiscoveredResource, outputDir string) toolResult {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	serviceDir := filepath.Join(outputDir, service)

	result, err := a.runner.Run(ctx, ExecRequest{
		Command: a.cfg.ToolPath,
		Args: []string{
			"import", "aws",
			"--resources", service,
			"--filter", fmt.Sprintf("%s=%s", service, strings.Join(ids, ":")),
			"--regions", a.region,
			"--path-output", serviceDir,
		},
		Timeout: a.cfg.ToolTimeout,
	})
	if err != nil {
		return toolResult{service: service, err: pipeerr.Wrap(err,
			pipeerr.KindGenerationFailure, "codegen", "tool invocation failed").
			WithDetail("service", service)}
	}
	if result.ExitCode != 0 {
		return toolResult{service: service, err: pipeerr.New(
			pipeerr.KindGenerationFailure, "codegen",
			fmt.Sprintf("tool exited with code %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))).
			WithDetail("service", service)}
	}

	fragment, readErr := collectGeneratedFiles(serviceDir)
	if readErr != nil || strings.TrimSpace(fragment) == "" {
		return toolResult{service: service, err: pipeerr.New(
			pipeerr.KindGenerationFailure, "codegen", "tool produced no output").
			WithDetail("service", service)}
	}
	return toolResult{service: service, fragment: fragment}
}

// collectGeneratedFiles concatenates every .tf file the tool wrote.
func collectGeneratedFiles(dir string) (string, error) {
	var doc strings.Builder
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tf") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		doc.Write(data)
		doc.WriteString("\n")
		return nil
	})
	return doc.String(), err
}

// stripBoilerplate removes provider and terraform blocks from a fragment
// so the merged document carries the canonical header exactly once.
func stripBoilerplate(fragment string) string {
	var out strings.Builder
	depth := 0
	skipping := false

	for _, line := range strings.Split(fragment, "\n") {
		trimmed := strings.TrimSpace(line)
		if !skipping && depth == 0 &&
			(strings.HasPrefix(trimmed, "provider ") || trimmed == "terraform {" || strings.HasPrefix(trimmed, "terraform {")) {
			skipping = true
		}
		if skipping {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 {
				skipping = false
				depth = 0
			}
			continue
		}
		out.WriteString(line)
		out.WriteString("\n")
	}
	return strings.TrimLeft(out.String(), "\n")
}

// importCommands builds the terraform import command per resource.
func importCommands(byService map[string][]models.DiscoveredResource) map[string]string {
	commands := make(map[string]string)
	for _, svc := range sortedServices(byService) {
		for _, resource := range byService[svc] {
			resourceType := resource.Type
			if resourceType == "" || resourceType == models.UnknownComponent {
				resourceType = "aws_" + svc
			}
			address := fmt.Sprintf("%s.%s", resourceType, terraformName(resource.ID))
			commands[resource.Key()] = fmt.Sprintf("terraform import %s %s", address, resource.ID)
		}
	}
	return commands
}
