package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/catherinevee/importmgr/internal/analyzer"
	"github.com/catherinevee/importmgr/internal/codegen"
	"github.com/catherinevee/importmgr/internal/cost"
	"github.com/catherinevee/importmgr/internal/discovery"
	"github.com/catherinevee/importmgr/internal/gaps"
	"github.com/catherinevee/importmgr/internal/pipeline"
	"github.com/catherinevee/importmgr/internal/security"
	"github.com/catherinevee/importmgr/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import <project-name>",
	Short: "Discover an account's resources and build an import job report",
	Long: `Run the full import pipeline against the configured AWS account:
discover resources, generate Terraform configuration, evaluate security
posture, and estimate monthly cost. Prints a summary and optionally
writes the generated IaC document to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCmd,
}

var (
	importServices []string
	importFilters  []string
	importOutput   string
	withSecHub     bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringSliceVarP(&importServices, "services", "s", nil, "restrict discovery to these services (e.g. ec2,s3)")
	importCmd.Flags().StringSliceVarP(&importFilters, "filter", "f", nil, "tag filters as key=value pairs")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "write the generated IaC document to this file")
	importCmd.Flags().BoolVar(&withSecHub, "security-hub", false, "enrich the report with Security Hub findings")
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	projectName := args[0]

	region := cfg.AWS.Region
	if flagRegion, _ := cmd.Flags().GetString("region"); flagRegion != "" {
		region = flagRegion
	}

	filters, err := parseFilters(importFilters)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to AWS (%s)...\n", region)
	client, err := discovery.NewAWSClient(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to initialize AWS client: %w", err)
	}

	engine := discovery.NewEngine(client, discovery.Config{
		ResourceCap:     cfg.Discovery.ResourceCap,
		StrategyTimeout: cfg.Discovery.StrategyTimeout,
		JoinTimeout:     cfg.Discovery.JoinTimeout,
	})

	var securityAnalyzer analyzer.Analyzer = analyzer.Noop{}
	if withSecHub {
		securityAnalyzer = analyzer.NewSecurityHub(client.Config())
	}

	controller := pipeline.NewController(
		engine,
		security.NewChecker(client),
		gaps.NewEngine(),
		cost.NewEstimator(),
		codegen.NewAdapter(codegen.NewRunner(), region, codegen.Config{
			ToolPath:    cfg.Codegen.ToolPath,
			ToolTimeout: cfg.Codegen.ToolTimeout,
			OutputDir:   cfg.Codegen.WorkDir,
		}),
		securityAnalyzer,
		nil,
		pipeline.Config{
			AccountID: client.AccountID(),
			Region:    region,
			Weights: pipeline.ScoreWeights{
				Critical: cfg.Scoring.CriticalWeight,
				High:     cfg.Scoring.HighWeight,
				Medium:   cfg.Scoring.MediumWeight,
			},
			CostReviewThreshold: cfg.Cost.ReviewThreshold,
		},
	)

	fmt.Printf("Running import job for %s...\n", projectName)
	job := controller.RunImport(ctx, projectName, importServices, filters)

	printJobSummary(job)

	if job.Status == models.JobStatusFailed {
		return fmt.Errorf("import job %s failed", job.ID)
	}

	if importOutput != "" && job.IaCDocument != "" {
		if err := os.WriteFile(importOutput, []byte(job.IaCDocument), 0o644); err != nil {
			return fmt.Errorf("failed to write IaC document: %w", err)
		}
		fmt.Printf("Wrote generated configuration to %s\n", importOutput)
	}
	return nil
}

func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		filters[key] = value
	}
	return filters, nil
}

func printJobSummary(job *models.ImportJob) {
	fmt.Printf("\nImport job %s: %s\n", job.ID, strings.ToUpper(string(job.Status)))
	if job.Status == models.JobStatusFailed {
		for _, rec := range job.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
		return
	}

	fmt.Printf("Account %s, region %s\n\n", job.AccountID, job.Region)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Service", "Resource", "Type", "Compliant", "Monthly Cost"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range job.Resources {
		compliant := "yes"
		if !r.Compliant {
			compliant = fmt.Sprintf("no (%d issues)", len(r.SecurityIssues))
		}
		table.Append([]string{
			r.Service, r.ID, r.Type, compliant, fmt.Sprintf("$%.2f", r.MonthlyCost),
		})
	}
	table.Render()

	fmt.Printf("\nResources: %d   Security score: %d/100   Estimated spend: $%.2f/month\n",
		len(job.Resources), job.SecurityScore, job.TotalCost)

	if len(job.Gaps) > 0 {
		fmt.Printf("\nSecurity gaps (%d):\n", len(job.Gaps))
		gapTable := tablewriter.NewWriter(os.Stdout)
		gapTable.SetHeader([]string{"Severity", "Type", "Resource", "Description"})
		gapTable.SetBorder(false)
		gapTable.SetHeaderLine(false)
		gapTable.SetColumnSeparator(" ")
		gapTable.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		gapTable.SetAlignment(tablewriter.ALIGN_LEFT)
		for _, gap := range sortedGaps(job.Gaps) {
			gapTable.Append([]string{
				strings.ToUpper(string(gap.Severity)), string(gap.Type), gap.ResourceID, gap.Description,
			})
		}
		gapTable.Render()
	}

	if len(job.Compliance) > 0 {
		fmt.Println("\nCompliance:")
		for _, name := range sortedKeys(job.Compliance) {
			status := job.Compliance[name]
			fmt.Printf("  %-12s %s (%d/%d controls passing)\n",
				name, status.Status, status.PassedControls, status.TotalControls)
		}
	}

	fmt.Println("\nRecommendations:")
	for _, rec := range job.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
}

var severityRank = map[models.Severity]int{
	models.SeverityCritical: 0,
	models.SeverityHigh:     1,
	models.SeverityMedium:   2,
	models.SeverityLow:      3,
}

func sortedGaps(in []models.SecurityGap) []models.SecurityGap {
	out := make([]models.SecurityGap, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return severityRank[out[i].Severity] < severityRank[out[j].Severity]
	})
	return out
}

func sortedKeys(m map[string]models.ComplianceStatus) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
