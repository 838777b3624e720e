package main

import (
	"fmt"
	"math"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/covidtrend/dataset"
	"github.com/sartorproj/covidtrend/pipeline"
	"github.com/sartorproj/covidtrend/report"
)

// --- Analyze Command ---

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis and write charts, workbook and summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keepGoing, _ := cmd.Flags().GetBool("keep-going")

			res, err := pipeline.Run(cmd.Context(), a.cfg, a.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := report.WriteText(out, res.Summary); err != nil {
				return err
			}
			if len(res.Files) > 0 {
				fmt.Fprintf(out, "\nWrote %d files to %s\n", len(res.Files), a.cfg.Output.Dir)
			}

			if err := res.Err(); err != nil && !keepGoing {
				return fmt.Errorf("analysis finished with errors: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", "output directory (overrides output.dir)")
	cmd.Flags().Int("horizon", 0, "forecast horizon in days (overrides forecast.horizon)")
	cmd.Flags().Bool("keep-going", false, "exit successfully even if a stage failed")
	return cmd
}

// --- Growth Command ---

func newGrowthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Print the average and daily growth rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Run(cmd.Context(), a.cfg, a.log, pipeline.Options{
				SkipDecomposition: true,
				SkipForecast:      true,
				SkipOutput:        true,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s, %s .. %s\n", res.Region, res.Metric, res.Summary.Start, res.Summary.End)
			fmt.Fprintf(out, "Average growth rate: %s\n", report.Percent(report.Round(res.AverageGrowthRate, 2)))

			if res.DailyGrowth != nil {
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "date\tgrowth\t")
				for i, day := range res.DailyGrowth.Timestamps {
					fmt.Fprintf(tw, "%s\t%s\t\n", day.Format(time.DateOnly), report.Percent(report.Round(res.DailyGrowth.Values[i], 2)))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			return res.StageErr(pipeline.StageGrowth)
		},
	}
	cmd.Flags().String("start", "", "window start date YYYY-MM-DD (default: first positive value)")
	cmd.Flags().String("end", "", "window end date YYYY-MM-DD (default: last date)")
	return cmd
}

// --- Forecast Command ---

func newForecastCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Fit an ARIMA model and print the forecast",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := pipeline.Run(cmd.Context(), a.cfg, a.log, pipeline.Options{
				SkipDecomposition: true,
				SkipOutput:        true,
			})
			if err != nil {
				return err
			}
			fc := res.Forecast
			if fc == nil {
				return res.Err()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Model: %s\n", fc.Model)
			if d := fc.Diagnostics; d != nil {
				fmt.Fprintf(out, "AIC: %.2f  BIC: %.2f  sigma^2: %.4g\n", d.AIC, d.BIC, d.Variance)
				if d.LjungBox != nil {
					fmt.Fprintf(out, "Ljung-Box: Q=%.3f p=%.4f (lags %d)\n", d.LjungBox.Statistic, d.LjungBox.PValue, d.LjungBox.Lags)
				}
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "date\tforecast\tlower\tupper\t")
			for i, day := range fc.Forecast.Timestamps {
				lower, upper := math.NaN(), math.NaN()
				if fc.Lower != nil && fc.Upper != nil {
					lower, upper = fc.Lower.Values[i], fc.Upper.Values[i]
				}
				fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t\n", day.Format(time.DateOnly), fc.Forecast.Values[i], lower, upper)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("horizon", 0, "forecast horizon in days (overrides forecast.horizon)")
	return cmd
}

// --- Regions Command ---

func newRegionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions present in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := dataset.Load(a.cfg.Dataset.Path, dataset.Options{
				DateColumns:    a.cfg.Dataset.DateColumns,
				NumericColumns: a.cfg.Dataset.NumericColumns,
			})
			if err != nil {
				return err
			}
			regions, err := table.Regions(a.cfg.Dataset.RegionColumn)
			if err != nil {
				return err
			}
			slices.Sort(regions)
			for _, r := range regions {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}
