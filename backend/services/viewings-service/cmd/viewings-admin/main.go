// Command viewings-admin runs payment release maintenance against the
// viewings database outside the HTTP service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/app"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/metrics"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/services"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

const defaultCommandTimeout = 2 * time.Minute

// stack is what every subcommand needs; built lazily so --help works without config.
type stack struct {
	app         *app.App
	vrRepo      repositories.ViewingRequestRepository
	releaseRepo repositories.PaymentReleaseRepository
	releases    *services.ReleaseRetryService
}

func newStack() (*stack, error) {
	cfg := config.LoadConfig()
	application, err := app.NewApp(cfg)
	if err != nil {
		return nil, err
	}

	vrRepo := repositories.NewViewingRequestRepository(application.DB)
	releaseRepo := repositories.NewPaymentReleaseRepository(application.DB)
	txnRepo := repositories.NewTransactionRepository(application.DB)
	propertyRepo := repositories.NewPropertyRepository(application.DB)
	profileRepo := repositories.NewProfileRepository(application.DB, cfg.DBEncryptionKey)

	var locker services.SweepLocker
	if application.Redis != nil {
		locker = services.NewRedisSweepLocker(application.Redis)
	}
	notifier := services.NewNotificationService(cfg, profileRepo, propertyRepo)
	releaser := services.NewPaymentReleaser(cfg, vrRepo, txnRepo, profileRepo)

	return &stack{
		app:         application,
		vrRepo:      vrRepo,
		releaseRepo: releaseRepo,
		releases:    services.NewReleaseRetryService(releaseRepo, releaser, notifier, locker, metrics.New()),
	}, nil
}

func main() {
	utils.InitLogger(config.AppName + "-admin")
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:           "viewings-admin",
		Short:         "Payment release maintenance for viewing requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultCommandTimeout, "Overall deadline for the command")

	withStack := func(fn func(ctx context.Context, s *stack, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			s, err := newStack()
			if err != nil {
				return err
			}
			defer s.app.Close()
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()
			return fn(ctx, s, args)
		}
	}

	cmd.AddCommand(
		sweepCmd(withStack),
		retryCmd(withStack),
		showCmd(withStack),
		pendingCmd(withStack),
	)
	return cmd
}

type stackRunner func(fn func(ctx context.Context, s *stack, args []string) error) func(*cobra.Command, []string) error

func sweepCmd(withStack stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Retry every payment release that is due now",
		Args:  cobra.NoArgs,
		RunE: withStack(func(ctx context.Context, s *stack, _ []string) error {
			report, err := s.releases.RunSweep(ctx)
			if err != nil {
				return err
			}
			return printJSON(report)
		}),
	}
}

func retryCmd(withStack stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <viewing-request-id>",
		Short: "Attempt one payment release immediately, even if it already failed",
		Args:  cobra.ExactArgs(1),
		RunE: withStack(func(ctx context.Context, s *stack, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid viewing request id: %w", err)
			}
			pr, err := s.releases.RetryNow(ctx, id)
			if pr != nil {
				if perr := printJSON(pr); perr != nil {
					return perr
				}
			}
			return err
		}),
	}
}

func showCmd(withStack stackRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "show <viewing-request-id>",
		Short: "Print a viewing request and its payment release",
		Args:  cobra.ExactArgs(1),
		RunE: withStack(func(ctx context.Context, s *stack, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid viewing request id: %w", err)
			}
			vr, err := s.vrRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if vr == nil {
				return fmt.Errorf("viewing request %s not found", id)
			}
			pr, err := s.releases.ReleaseFor(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"viewing_request": vr, "release": pr})
		}),
	}
}

func pendingCmd(withStack stackRunner) *cobra.Command {
	var (
		limit      int
		failedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List payment releases that have not succeeded",
		Args:  cobra.NoArgs,
		RunE: withStack(func(ctx context.Context, s *stack, _ []string) error {
			statuses := []models.ReleaseStatusType{models.ReleaseStatusFailed}
			if !failedOnly {
				statuses = append(statuses, models.ReleaseStatusPending, models.ReleaseStatusDeferred)
			}
			list, err := s.releaseRepo.ListByStatus(ctx, statuses, limit)
			if err != nil {
				return err
			}
			return printJSON(list)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of releases to print")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only releases that exhausted their attempts")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
