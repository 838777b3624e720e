// covidtrend analyzes the growth of COVID-19 case counts for one region
// and forecasts them with an automatically selected ARIMA model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sartorproj/covidtrend/config"
	"github.com/sartorproj/covidtrend/logging"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries the loaded configuration and logger to the subcommands.
type app struct {
	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "covidtrend",
		Short: "Growth rates, decomposition and forecasts of COVID-19 case counts",
		Long: `covidtrend loads a line list of COVID-19 observations, selects the
series of one region and derives daily deltas, growth rates, a seasonal
decomposition and an ARIMA forecast from it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "config file path (YAML)")
	root.PersistentFlags().String("data", "", "line list CSV path (overrides dataset.path)")
	root.PersistentFlags().String("region", "", "country/region to analyze (overrides selection.region)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newGrowthCmd(a))
	root.AddCommand(newForecastCmd(a))
	root.AddCommand(newRegionsCmd(a))

	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if data, _ := cmd.Flags().GetString("data"); data != "" {
		cfg.Dataset.Path = data
	}
	if region, _ := cmd.Flags().GetString("region"); region != "" {
		cfg.Selection.Region = region
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if f := cmd.Flags().Lookup("horizon"); f != nil && f.Changed {
		cfg.Forecast.Horizon, _ = cmd.Flags().GetInt("horizon")
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Output.Dir = out
	}
	if start, _ := cmd.Flags().GetString("start"); start != "" {
		cfg.Growth.Start = start
	}
	if end, _ := cmd.Flags().GetString("end"); end != "" {
		cfg.Growth.End = end
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg, a.log = cfg, log
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "covidtrend %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
		},
	}
}
