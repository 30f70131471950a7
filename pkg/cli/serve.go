package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/cli/config"
	controller "github.com/secmon-lab/shinobi/pkg/controller/http"
	"github.com/secmon-lab/shinobi/pkg/service/llm"
	slackSvc "github.com/secmon-lab/shinobi/pkg/service/slack"
	"github.com/secmon-lab/shinobi/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg    config.Server
		slackCfg     config.Slack
		githubCfg    config.GitHub
		firestoreCfg config.Firestore
		geminiCfg    config.Gemini
		policyCfg    config.Policy
	)

	flags := joinFlags(
		serverCfg.Flags(),
		slackCfg.Flags(),
		githubCfg.Flags(),
		firestoreCfg.Flags(),
		geminiCfg.Flags(),
		policyCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting shinobi server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("slack", slackCfg),
				slog.Any("github", githubCfg),
				slog.Any("firestore", firestoreCfg),
				slog.Any("gemini", geminiCfg),
				slog.Any("policy", policyCfg),
			)

			if err := slackCfg.Validate(); err != nil {
				return err
			}
			if err := githubCfg.Validate(); err != nil {
				return err
			}

			// Create repository using config
			repo, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			// Create vector index for the duplicate knowledge base
			vectorIndex, err := firestoreCfg.ConfigureVectorIndex(ctx)
			if err != nil {
				return err
			}
			defer vectorIndex.Close()

			// Create gollem LLM client using Gemini configuration
			gollemClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if closer, ok := gollemClient.(interface{ Close() error }); ok && closer != nil {
				defer closer.Close()
			}
			analyzer := llm.NewService(gollemClient)

			// Create Slack client
			slackClient := slackSvc.NewClientAdapter(slackCfg.OAuthToken)

			// Create GitHub write-back client
			issueClient, err := githubCfg.Configure()
			if err != nil {
				return err
			}

			// Load triage policy
			policy, err := policyCfg.Configure(ctx)
			if err != nil {
				return err
			}

			// Create use case
			triageUC := usecase.NewTriage(
				repo,
				vectorIndex,
				analyzer,
				slackClient,
				issueClient,
				policy,
				slackCfg.ChannelID(),
			)
			defer triageUC.Close()

			// Reschedule approval windows that survived a restart
			resumed, err := triageUC.ResumePending(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to resume pending triages")
			}
			if resumed > 0 {
				logger.Info("Resumed pending triages", slog.Int("count", resumed))
			}

			// Create HTTP server
			server, err := controller.NewServer(
				ctx,
				serverCfg.Addr,
				&slackCfg,
				&githubCfg,
				triageUC,
				slackClient,
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}
			defer server.Close()

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
