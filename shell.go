package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"agri-smart/farm"
	"agri-smart/forecast"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, "Available commands:")
	fmt.Fprintln(w, "  Account: sign up, sign in, sign out, whoami")
	fmt.Fprintln(w, "  Equipment: listings, book, bookings, all bookings")
	fmt.Fprintln(w, "  Dashboard: dashboard, advice, analytics")
	fmt.Fprintln(w, "  Predictions: demo predict, save prediction, predictions")
	fmt.Fprintln(w, "  Market: market, predict, snapshot, advise")
	fmt.Fprintln(w, "  System: help, exit")
}

// shell reads one command per line until exit or end of input. Errors are
// reported and the loop continues.
func (a *app) shell(ctx context.Context, w io.Writer) error {
	fmt.Fprintln(w, "Welcome to AgriSmart!")
	printShellHelp(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tips:")
	fmt.Fprintln(w, "  • For 'listings': press Enter at a filter prompt to skip it")

	for {
		if ctx.Err() != nil {
			return nil
		}
		cmd, ok := a.ask(w, "\n> ")
		if !ok {
			return nil
		}

		var err error
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "sign up", "signup":
			err = a.handleSignUp(ctx, w)
		case "sign in", "signin":
			err = a.handleSignIn(ctx, w)
		case "sign out", "signout":
			err = a.signOut(ctx, w)
		case "whoami":
			err = a.whoAmI(ctx, w)
		case "listings":
			err = a.handleListings(ctx, w)
		case "book":
			err = a.handleBook(ctx, w)
		case "bookings":
			err = a.bookings(ctx, w, false)
		case "all bookings":
			err = a.bookings(ctx, w, true)
		case "dashboard":
			err = a.dashboard(ctx, w)
		case "advice":
			err = a.generateAdvice(ctx, w)
		case "analytics":
			err = a.analytics(ctx, w)
		case "demo predict":
			err = a.demoPredict(ctx, w)
		case "save prediction":
			err = a.handleSavePrediction(ctx, w)
		case "predictions":
			err = a.savedPredictions(ctx, w)
		case "market":
			err = a.handleMarket(ctx, w)
		case "predict":
			err = a.handlePredict(ctx, w)
		case "snapshot":
			err = a.handleSnapshot(ctx, w)
		case "advise":
			err = a.handleAdvise(ctx, w)
		case "help":
			printShellHelp(w)
		case "exit", "quit":
			fmt.Fprintln(w, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(w, "Unknown command. Type 'help' to see the available commands.")
		}
		if err != nil {
			reportError(w, err)
		}
	}
}

func (a *app) handleSignUp(ctx context.Context, w io.Writer) error {
	name, _ := a.ask(w, "Name: ")
	email, _ := a.ask(w, "Email: ")
	password, err := a.readPassword(w, fmt.Sprintf("Enter password for %s: ", email))
	if err != nil {
		return err
	}
	return a.signUp(ctx, w, name, email, password)
}

func (a *app) handleSignIn(ctx context.Context, w io.Writer) error {
	email, _ := a.ask(w, "Email: ")
	password, err := a.readPassword(w, "Enter your password: ")
	if err != nil {
		return err
	}
	return a.signIn(ctx, w, email, password)
}

func (a *app) handleListings(ctx context.Context, w io.Writer) error {
	var c farm.Criteria
	c.Search, _ = a.ask(w, "Search (optional): ")
	c.Location, _ = a.ask(w, "Location (optional): ")
	c.Status, _ = a.ask(w, "Status (optional): ")
	return a.listings(ctx, w, c)
}

func (a *app) handleBook(ctx context.Context, w io.Writer) error {
	idStr, _ := a.ask(w, "Listing ID: ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid listing ID: %s", idStr)
	}
	dates, _ := a.ask(w, "Dates: ")
	return a.book(ctx, w, id, dates)
}

func (a *app) handleSavePrediction(ctx context.Context, w io.Writer) error {
	crop, _ := a.ask(w, "Crop: ")
	date, _ := a.ask(w, "Date (YYYY-MM-DD, Enter for today): ")
	return a.savePrediction(ctx, w, crop, date)
}

func (a *app) handleMarket(ctx context.Context, w io.Writer) error {
	crop, _ := a.ask(w, "Crop: ")
	region, _ := a.ask(w, "State: ")
	return a.market(ctx, w, crop, region)
}

func (a *app) handlePredict(ctx context.Context, w io.Writer) error {
	crop, _ := a.ask(w, "Crop: ")
	start, _ := a.ask(w, "Start date (optional): ")
	return a.predict(ctx, w, crop, start)
}

func (a *app) handleSnapshot(ctx context.Context, w io.Writer) error {
	crop, _ := a.ask(w, "Crop: ")
	region, _ := a.ask(w, "State: ")
	start, _ := a.ask(w, "Start date (optional): ")
	return a.snapshot(ctx, w, crop, region, start)
}

func (a *app) handleAdvise(ctx context.Context, w io.Writer) error {
	var in forecast.SoilInput
	for _, f := range []struct {
		prompt string
		dst    *float64
	}{
		{"Nitrogen (kg/ha): ", &in.Nitrogen},
		{"Phosphorus (kg/ha): ", &in.Phosphorus},
		{"Potassium (kg/ha): ", &in.Potassium},
	} {
		s, _ := a.ask(w, f.prompt)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", s)
		}
		*f.dst = v
	}
	in.Crop, _ = a.ask(w, "Preferred crop (optional): ")
	return a.advise(ctx, w, in, false)
}
