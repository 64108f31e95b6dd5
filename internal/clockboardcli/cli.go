package clockboardcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phillip-england/clockboard/internal/connecteam"
	"github.com/phillip-england/clockboard/internal/dashboard"
	"github.com/phillip-england/clockboard/internal/envutil"
	"github.com/phillip-england/clockboard/internal/logging"
	"github.com/phillip-england/clockboard/internal/metrics"
	"github.com/phillip-england/clockboard/internal/security"
	"github.com/phillip-england/clockboard/internal/storeconfig"
	"github.com/spf13/cobra"
)

var ErrUsage = errors.New("usage")

// Version is stamped at build time with -ldflags.
var Version = "dev"

const usageText = `usage: clockboard serve [--addr :5050] [--stores stores.json] [--env-file .env]
       clockboard setup --api-key <key> [--stores stores.json] [--timezone America/Los_Angeles] [--force]
       clockboard stores check [--stores stores.json]
       clockboard pin hash <pin>`

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, usageText)
}

// Execute runs the command line with args, excluding the program name.
func Execute(args []string) error {
	return ExecuteContext(context.Background(), args, os.Stdout)
}

func ExecuteContext(ctx context.Context, args []string, out io.Writer) error {
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root := newRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func usageError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrUsage}, a...)...)
}

// groupCommand rejects being called without a known subcommand.
func groupCommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return usageError("%s needs a subcommand", cmd.CommandPath())
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError("%v", err)
		}
		return nil
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "clockboard",
		Short:         "Live timeclock dashboard for store managers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          groupCommand,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newServeCommand(),
		newSetupCommand(),
		newStoresCommand(),
		newPINCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	var (
		addr       string
		storesPath string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard until interrupted",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := envutil.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			if storesPath == "" {
				storesPath = envutil.String("STORES_CONFIG", "stores.json")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			err := serve(ctx, serveOptions{Addr: addr, StoresPath: storesPath})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default DASHBOARD_ADDR or :5050)")
	cmd.Flags().StringVar(&storesPath, "stores", "", "store config file (default STORES_CONFIG or stores.json)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to .env file")
	return cmd
}

type serveOptions struct {
	Addr       string
	StoresPath string
}

func serve(ctx context.Context, opts serveOptions) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = envutil.String("LOG_LEVEL", logCfg.Level)
	logCfg.Version = Version
	logger := logging.New(logCfg)
	m := metrics.New()

	registry, err := storeconfig.Open(opts.StoresPath, logger)
	if err != nil {
		return err
	}
	logger.Info("store config loaded", "path", opts.StoresPath, "stores", len(registry.Current().Stores))

	if envutil.Bool("WATCH_STORES_CONFIG", true) {
		go func() {
			if err := registry.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("store config watch stopped", "error", err)
			}
		}()
	}

	clientCfg, err := connecteam.DefaultConfigFromEnv()
	if err != nil {
		return err
	}
	clientCfg.Logger = logger
	clientCfg.Recorder = m
	client, err := connecteam.New(clientCfg)
	if err != nil {
		return err
	}
	source := connecteam.NewSource(client, connecteam.SourceOptions{
		BusinessHoursOnly: envutil.Bool("BUSINESS_HOURS_ONLY", true),
		Logger:            logger,
	})

	dashCfg := dashboard.DefaultConfigFromEnv()
	if opts.Addr != "" {
		dashCfg.Addr = opts.Addr
	}
	dashCfg.Location = client.Location()
	dashCfg.Logger = logger
	dashCfg.Metrics = m

	return dashboard.NewServer(dashCfg, registry, source).Run(ctx)
}

func newSetupCommand() *cobra.Command {
	var (
		apiKey     string
		storesPath string
		timezone   string
		envFile    string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a .env file for the dashboard",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if apiKey == "" {
				return usageError("--api-key is required")
			}
			if _, err := time.LoadLocation(timezone); err != nil {
				return fmt.Errorf("invalid timezone %q: %w", timezone, err)
			}

			values := map[string]string{
				"CONNECTEAM_API_KEY": apiKey,
				"STORES_CONFIG":      storesPath,
				"TIMEZONE":           timezone,
				"DASHBOARD_ADDR":     ":5050",
				"LOG_LEVEL":          "info",
			}
			if err := envutil.WriteDotEnv(envFile, values, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", envFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Connecteam API key")
	cmd.Flags().StringVar(&storesPath, "stores", "stores.json", "store config file")
	cmd.Flags().StringVar(&timezone, "timezone", "America/Los_Angeles", "IANA timezone used for day boundaries")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to .env file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing env file")
	return cmd
}

func newStoresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Inspect the store config",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupCommand,
	}

	var storesPath string
	check := &cobra.Command{
		Use:   "check",
		Short: "Load and validate the store config",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if storesPath == "" {
				storesPath = envutil.String("STORES_CONFIG", "stores.json")
			}
			cfg, err := storeconfig.Load(storesPath)
			if err != nil {
				return err
			}
			writeStoreSummary(cmd.OutOrStdout(), storesPath, cfg)
			return nil
		},
	}
	check.Flags().StringVar(&storesPath, "stores", "", "store config file (default STORES_CONFIG or stores.json)")
	cmd.AddCommand(check)
	return cmd
}

func newPINCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "PIN helpers",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupCommand,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "hash <pin>",
		Short: "Print a hashed PIN for the store config",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := security.HashPIN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	})
	return cmd
}
