package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"agri-smart/forecast"
)

func newMarketCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "market <crop> <region>",
		Short: "Show recent modal prices for a crop in a state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.market(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "predict <crop>",
		Short: "Forecast prices for a crop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.predict(cmd.Context(), cmd.OutOrStdout(), args[0], start)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first forecast date, YYYY-MM-DD")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "snapshot <crop> <region>",
		Short: "Fetch market prices and the forecast together",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.snapshot(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], start)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first forecast date, YYYY-MM-DD")
	return cmd
}

func newAdviseCmd(a *app) *cobra.Command {
	var (
		in     forecast.SoilInput
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Score crops and recommend seeds for a soil test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.advise(cmd.Context(), cmd.OutOrStdout(), in, asJSON)
		},
	}
	cmd.Flags().Float64Var(&in.Nitrogen, "n", 0, "nitrogen, kg/ha")
	cmd.Flags().Float64Var(&in.Phosphorus, "p", 0, "phosphorus, kg/ha")
	cmd.Flags().Float64Var(&in.Potassium, "k", 0, "potassium, kg/ha")
	cmd.Flags().StringVar(&in.Crop, "crop", "", "preferred crop")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the advice as JSON")
	return cmd
}

func (a *app) market(ctx context.Context, w io.Writer, crop, region string) error {
	if _, _, err := a.requireAccount(ctx); err != nil {
		return err
	}
	rep, err := a.gateway().MarketPrices(ctx, crop, region)
	if err != nil {
		return err
	}
	heading(w, "%s in %s", rep.Crop, rep.Region)
	for _, p := range rep.Points {
		fmt.Fprintf(w, "  %-10s %10.2f\n", p.Date, p.Price)
	}
	if rep.ReferencePrice > 0 {
		fmt.Fprintf(w, "  %-10s %10.2f\n", "MSP", rep.ReferencePrice)
	}
	return nil
}

func (a *app) predict(ctx context.Context, w io.Writer, crop, start string) error {
	if _, _, err := a.requireAccount(ctx); err != nil {
		return err
	}
	preds, err := a.gateway().Predict(ctx, crop, start)
	if err != nil {
		return err
	}
	printPredictions(w, crop, preds)
	return nil
}

func printPredictions(w io.Writer, crop string, preds []forecast.Prediction) {
	heading(w, "%s forecast", crop)
	for _, p := range preds {
		fmt.Fprintf(w, "  %-10s %10.2f\n", p.Date, p.PredictedPrice)
	}
}

func (a *app) snapshot(ctx context.Context, w io.Writer, crop, region, start string) error {
	if _, _, err := a.requireAccount(ctx); err != nil {
		return err
	}
	snap := a.gateway().Snapshot(ctx, crop, region, start)
	if snap.MarketErr != nil {
		warning(w, "market prices: %v", snap.MarketErr)
	} else {
		heading(w, "%s in %s", snap.Market.Crop, snap.Market.Region)
		for _, p := range snap.Market.Points {
			fmt.Fprintf(w, "  %-10s %10.2f\n", p.Date, p.Price)
		}
	}
	if snap.ForecastErr != nil {
		warning(w, "forecast: %v", snap.ForecastErr)
	} else {
		printPredictions(w, crop, snap.Forecast)
	}
	return nil
}

func (a *app) advise(ctx context.Context, w io.Writer, in forecast.SoilInput, asJSON bool) error {
	if _, _, err := a.requireAccount(ctx); err != nil {
		return err
	}
	adv, err := a.advisor(ctx)
	if err != nil {
		return err
	}
	out, err := adv.Advise(ctx, in)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	heading(w, "Crop suitability")
	for _, s := range out.CropSuitability {
		fmt.Fprintf(w, "  %-10s %3d%%\n", s.Crop, s.Percentage)
	}
	if len(out.RecommendedSeeds) > 0 {
		heading(w, "Recommended seeds")
		for _, s := range out.RecommendedSeeds {
			fmt.Fprintf(w, "  %-24s %-10s %-8s %s\n", s.Name, s.Crop, s.Season, s.YieldType)
		}
	}
	heading(w, "Advice")
	fmt.Fprintf(w, "  %s\n", out.Advice)
	return nil
}
