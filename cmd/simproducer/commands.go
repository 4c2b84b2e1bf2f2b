package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/webmon/internal/adapter/producer"
	"github.com/pscheid92/webmon/internal/platform/logging"
	"github.com/pscheid92/webmon/internal/platform/version"
	"github.com/pscheid92/webmon/internal/simproducer"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	redisURL  string
	keyPrefix string
	interval  time.Duration
	logLevel  string

	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "simproducer",
	Short: "Simulated producer for the webmon bridge",
	Long: `simproducer writes snapshots and messages into the Redis keys the
webmon bridge polls, and consumes the commands viewers send.

Examples:
  # Print the PRODUCER_CLIENT value for the bridge
  simproducer config --redis-url redis://localhost:6379/0

  # Run until interrupted
  simproducer run --redis-url redis://localhost:6379/0 --interval 50ms`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Publish simulated state until interrupted or told to quit",
	RunE:  runSimulation,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the base64 connector config for PRODUCER_CLIENT",
	RunE:  printConfig,
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Set the shutdown flag without running a simulation",
	RunE:  requestShutdown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "redis://localhost:6379/0", "Redis URL shared with the bridge")
	rootCmd.PersistentFlags().StringVar(&keyPrefix, "prefix", producer.DefaultKeyPrefix, "Key prefix shared with the bridge")
	runCmd.Flags().DurationVar(&interval, "interval", simproducer.DefaultInterval, "Time between simulated frames")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(runCmd, configCmd, shutdownCmd)
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		_, _ = red.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func newClient() (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid --redis-url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	closeLog, err := logging.InitLogger(logLevel, "text", "")
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	rdb, err := newClient()
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach redis at %s: %w", redisURL, err)
	}

	sim := simproducer.New(producer.NewEmitter(rdb, keyPrefix), clockwork.NewRealClock(), interval)
	if err := sim.Run(ctx); err != nil {
		return err
	}

	_, _ = green.Println("✓ Simulation stopped, shutdown flag set")
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	encoded := producer.ClientConfig{RedisURL: redisURL, KeyPrefix: keyPrefix}.Encode()
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return nil
}

func requestShutdown(cmd *cobra.Command, args []string) error {
	rdb, err := newClient()
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	if err := producer.NewEmitter(rdb, keyPrefix).RequestShutdown(ctx); err != nil {
		return fmt.Errorf("failed to set shutdown flag: %w", err)
	}
	_, _ = green.Println("✓ Shutdown flag set")
	return nil
}
