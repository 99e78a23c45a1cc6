package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agri-smart/farm"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the farm dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dashboard(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newAdviceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Add a generated advice line to the activity feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generateAdvice(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newAnalyticsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show the sample profit, yield and resource charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.analytics(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newDemoPredictCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo-predict",
		Short: "Run the demo price and demand prediction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.demoPredict(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newSavePredictionCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "save-prediction <crop>",
		Short: "Save a prediction for a crop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.savePrediction(cmd.Context(), cmd.OutOrStdout(), args[0], date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date of the prediction, YYYY-MM-DD (default today)")
	return cmd
}

func newPredictionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "predictions",
		Short: "List saved predictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.savedPredictions(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func formatTS(ms int64) string {
	return time.UnixMilli(ms).Format("02 Jan 15:04")
}

func (a *app) dashboard(ctx context.Context, w io.Writer) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	ov, err := mgr.Overview(ctx, a.sess)
	if err != nil {
		return err
	}

	heading(w, "%s", ov.Greeting)
	fmt.Fprintf(w, "  Crops: %d   Predictions: %d   Bookings: %d\n",
		ov.KPIs.Crops, ov.KPIs.Predictions, ov.KPIs.Bookings)
	fmt.Fprintf(w, "  Weather: %s\n", ov.Weather)

	heading(w, "Wheat prices")
	for i, p := range ov.WheatPrices {
		label := ""
		if i < len(ov.PriceLabels) {
			label = ov.PriceLabels[i]
		}
		fmt.Fprintf(w, "  %-4s %8.0f\n", label, p)
	}

	heading(w, "Recent activity")
	for _, act := range ov.Activity {
		fmt.Fprintf(w, "  %s  %s\n", formatTS(act.TS), act.Text)
	}

	heading(w, "Alerts")
	for _, al := range ov.Alerts {
		fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(al.Severity), al.Title, al.Text)
	}

	heading(w, "Fields")
	for _, m := range ov.Markers {
		fmt.Fprintf(w, "  %-20s (%.4f, %.4f) %s\n", m.Label, m.Lat, m.Lon,
			strings.ReplaceAll(m.Popup, "\n", " | "))
	}
	return nil
}

func (a *app) generateAdvice(ctx context.Context, w io.Writer) error {
	mgr, _, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	advice, err := mgr.GenerateAdvice(ctx)
	if err != nil {
		return err
	}
	success(w, "%s", advice)
	return nil
}

func (a *app) analytics(ctx context.Context, w io.Writer) error {
	if _, _, err := a.requireAccount(ctx); err != nil {
		return err
	}
	an := farm.SampleAnalytics()
	printChart(w, "Profit", an.Profit)
	printChart(w, "Yield", an.Yield)
	printChart(w, "Resources", an.Resources)
	return nil
}

func printChart(w io.Writer, title string, c farm.Chart) {
	heading(w, "%s", title)
	fmt.Fprintf(w, "  %-12s", "")
	for _, l := range c.Labels {
		fmt.Fprintf(w, " %10s", l)
	}
	fmt.Fprintln(w)
	for _, ds := range c.Datasets {
		fmt.Fprintf(w, "  %-12s", ds.Label)
		for _, v := range ds.Data {
			fmt.Fprintf(w, " %10.0f", v)
		}
		fmt.Fprintln(w)
	}
}

func (a *app) demoPredict(ctx context.Context, w io.Writer) error {
	mgr, _, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	p := mgr.DemoPrediction()
	fmt.Fprintf(w, "%-6s %10s %8s\n", "Month", "Price", "Demand")
	for i, label := range p.Labels {
		fmt.Fprintf(w, "%-6s %10.0f %8.0f\n", label, p.Price[i], p.Demand[i])
	}
	return nil
}

func (a *app) savePrediction(ctx context.Context, w io.Writer, crop, date string) error {
	mgr, _, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	rec, err := mgr.SavePrediction(ctx, crop, date)
	if err != nil {
		return err
	}
	success(w, "Saved prediction for %s on %s", rec.Crop, rec.Date)
	return nil
}

func (a *app) savedPredictions(ctx context.Context, w io.Writer) error {
	mgr, _, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	list, err := mgr.SavedPredictions(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved predictions.")
		return nil
	}
	for _, p := range list {
		fmt.Fprintf(w, "%-12s %-10s saved %s\n", p.Crop, p.Date, formatTS(p.TS))
	}
	return nil
}
