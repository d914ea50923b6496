package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/dashboard/internal/config"
	"github.com/ehr/dashboard/internal/platform/auth"
	"github.com/ehr/dashboard/internal/platform/reporting"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard-server",
		Short: "Patient dashboard API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load stored collections, writing seed data for any that are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			rt, err := openRuntime(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(rt.seeded) == 0 {
				fmt.Println("All collections already present; nothing seeded.")
				return nil
			}
			for _, key := range rt.seeded {
				fmt.Printf("Seeded %s\n", key)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics for the stored data",
		RunE: func(cmd *cobra.Command, args []string) error {
			top, _ := cmd.Flags().GetInt("top")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()
			rt, err := openRuntime(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			summary := reporting.Dashboard(time.Now(), rt.store.Snapshot(), cfg.RecentActivityLimit, top)
			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().Int("top", reporting.DefaultTopDiagnoses, "Number of diagnoses to list")
	return cmd
}

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete stored collections so the next start reseeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !yes {
				fmt.Printf("This deletes every patient, examination and file in namespace %q. Continue? [y/N] ", cfg.StorageNamespace)
				answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			logger, logCloser, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer logCloser.Close()

			ctx := context.Background()
			kv, gw, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer kv.Close()

			if err := gw.Reset(ctx); err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			logger.Info().Str("namespace", cfg.StorageNamespace).Msg("stored collections deleted")
			fmt.Println("Reset complete.")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
