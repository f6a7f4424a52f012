package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/flowbaker/workflow-monitor/internal/config"
	"github.com/flowbaker/workflow-monitor/internal/initialization"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootOptions carries the persistent flags shared by every command
type rootOptions struct {
	viper      *viper.Viper
	configFile string
	debug      bool
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "workflow-monitor",
		Short: "Workflow Monitor CLI",
		Long: `Workflow Monitor watches the running workflows of one marketplace on the orchestration
engine, and lets you inspect their progress and cancel them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if opts.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.configFile, "config", "", "Config file (default monitor.yaml in ., ./config or ~/.workflow-monitor)")
	flags.String("api-url", "", "Override API URL")
	flags.String("marketplace", "", "Marketplace to monitor")
	flags.Duration("interval", 0, "Polling interval")

	// flags win over the config file and environment when set
	_ = opts.viper.BindPFlag("api_base_url", flags.Lookup("api-url"))
	_ = opts.viper.BindPFlag("marketplace", flags.Lookup("marketplace"))
	_ = opts.viper.BindPFlag("poll_interval", flags.Lookup("interval"))

	rootCmd.AddCommand(NewWatchCommand(opts))
	rootCmd.AddCommand(NewListCommand(opts))
	rootCmd.AddCommand(NewProgressCommand(opts))
	rootCmd.AddCommand(NewCancelCommand(opts))
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.viper, o.configFile)
}

// buildContainer loads the configuration and wires a monitor. interactive tells whether a
// live owner will consume the monitor's view.
func (o *rootOptions) buildContainer(ctx context.Context, interactive bool) (*config.Config, *initialization.MonitorContainer, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	container, err := initialization.NewMonitorContainer(ctx, initialization.MonitorDependencyConfig{
		Config:      cfg,
		Interactive: interactive,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build monitor: %w", err)
	}

	return cfg, container, nil
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
