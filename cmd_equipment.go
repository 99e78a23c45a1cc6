package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"agri-smart/farm"
)

func newListingsCmd(a *app) *cobra.Command {
	var c farm.Criteria
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List rental equipment",
		Long: `List rental equipment, optionally filtered.

--search matches name and description case-insensitively. --location and
--status must match exactly; "all" means no constraint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listings(cmd.Context(), cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&c.Search, "search", "", "text to find in name or description")
	cmd.Flags().StringVar(&c.Location, "location", farm.FilterAll, "location filter")
	cmd.Flags().StringVar(&c.Status, "status", farm.FilterAll, "status filter: available, booked, maintenance")
	return cmd
}

func newBookCmd(a *app) *cobra.Command {
	var dates string
	cmd := &cobra.Command{
		Use:   "book <listing-id>",
		Short: "Book an available piece of equipment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid listing id %q", args[0])
			}
			return a.book(cmd.Context(), cmd.OutOrStdout(), id, dates)
		},
	}
	cmd.Flags().StringVar(&dates, "dates", "", "requested dates, free text")
	return cmd
}

func newBookingsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bookings(cmd.Context(), cmd.OutOrStdout(), all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every account's bookings")
	return cmd
}

func (a *app) listings(ctx context.Context, w io.Writer, c farm.Criteria) error {
	mgr, _, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	list, err := mgr.Listings(ctx, c)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		warning(w, "No equipment matches those filters")
		return nil
	}
	printListings(w, list)
	return nil
}

func printListings(w io.Writer, list []farm.Listing) {
	fmt.Fprintf(w, "%-4s %-28s %-12s %-12s %10s %6s\n", "ID", "Name", "Location", "Status", "Price/day", "Rating")
	for _, l := range list {
		fmt.Fprintf(w, "%-4d %-28s %-12s %-12s %10.0f %6.1f\n",
			l.ID, l.Name, l.Location, l.Status, l.Price, l.Rating)
	}
}

func (a *app) book(ctx context.Context, w io.Writer, id int64, dates string) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	bk, err := mgr.Book(ctx, a.sess, id, dates)
	if err != nil {
		return err
	}
	success(w, "Booked %s for %s (booking %d)", bk.Item, bk.User, bk.ID)
	fmt.Fprintf(w, "  Cost: %.0f\n", bk.Cost)
	return nil
}

func (a *app) bookings(ctx context.Context, w io.Writer, all bool) error {
	mgr, acct, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	var list []farm.Booking
	if all {
		list, err = mgr.AllBookings(ctx)
	} else {
		list, err = mgr.BookingsFor(ctx, acct.Email)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No bookings yet.")
		return nil
	}
	fmt.Fprintf(w, "%-15s %-28s %-20s %-25s %8s\n", "ID", "Item", "Dates", "User", "Cost")
	for _, b := range list {
		fmt.Fprintf(w, "%-15d %-28s %-20s %-25s %8.0f\n", b.ID, b.Item, b.Dates, b.User, b.Cost)
	}
	return nil
}
