package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/catherinevee/importmgr/internal/analyzer"
	"github.com/catherinevee/importmgr/internal/api"
	"github.com/catherinevee/importmgr/internal/codegen"
	"github.com/catherinevee/importmgr/internal/cost"
	"github.com/catherinevee/importmgr/internal/discovery"
	"github.com/catherinevee/importmgr/internal/gaps"
	"github.com/catherinevee/importmgr/internal/pipeline"
	"github.com/catherinevee/importmgr/internal/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the import job HTTP API",
	Long: `Start an HTTP server that accepts import jobs over POST /api/v1/imports
and serves their results. Jobs run asynchronously; poll GET
/api/v1/imports/{id} for completion.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("security-hub", false, "enrich jobs with Security Hub findings")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	region := cfg.AWS.Region
	if flagRegion, _ := cmd.Flags().GetString("region"); flagRegion != "" {
		region = flagRegion
	}

	client, err := discovery.NewAWSClient(ctx, region)
	if err != nil {
		return fmt.Errorf("failed to initialize AWS client: %w", err)
	}

	var securityAnalyzer analyzer.Analyzer = analyzer.Noop{}
	if useSecHub, _ := cmd.Flags().GetBool("security-hub"); useSecHub {
		securityAnalyzer = analyzer.NewSecurityHub(client.Config())
	}

	controller := pipeline.NewController(
		discovery.NewEngine(client, discovery.Config{
			ResourceCap:     cfg.Discovery.ResourceCap,
			StrategyTimeout: cfg.Discovery.StrategyTimeout,
			JoinTimeout:     cfg.Discovery.JoinTimeout,
		}),
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

	server := api.NewServer(controller, api.NewJobStore())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr(),
			cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-stop:
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
