package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"agri-smart/farm"
)

func newSignUpCmd(a *app) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if name == "" {
				name, _ = a.ask(w, "Name: ")
			}
			if email == "" {
				email, _ = a.ask(w, "Email: ")
			}
			if password == "" {
				var err error
				if password, err = a.readPassword(w, "Password: "); err != nil {
					return err
				}
			}
			return a.signUp(cmd.Context(), w, name, email, password)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if email == "" {
				email, _ = a.ask(w, "Email: ")
			}
			if password == "" {
				var err error
				if password, err = a.readPassword(w, "Password: "); err != nil {
					return err
				}
			}
			return a.signIn(cmd.Context(), w, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.signOut(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.whoAmI(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) signUp(ctx context.Context, w io.Writer, name, email, password string) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	acct, err := mgr.Register(ctx, a.sess, name, email, password)
	if err != nil {
		return err
	}
	success(w, "Welcome, %s! Signed in as %s", acct.Name, acct.Email)
	fmt.Fprintf(w, "  Next: %s\n", a.cfg.HTTP.DashboardPath)
	return nil
}

func (a *app) signIn(ctx context.Context, w io.Writer, email, password string) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	acct, err := mgr.Authenticate(ctx, a.sess, email, password)
	if err != nil {
		return err
	}
	success(w, "Signed in as %s", acct.Email)
	fmt.Fprintf(w, "  Next: %s\n", a.cfg.HTTP.DashboardPath)
	return nil
}

func (a *app) signOut(ctx context.Context, w io.Writer) error {
	mgr, err := a.manager(ctx)
	if err != nil {
		return err
	}
	target, err := mgr.EndSession(ctx, a.sess)
	if err != nil {
		return err
	}
	success(w, "Signed out")
	fmt.Fprintf(w, "  Next: %s\n", target)
	return nil
}

// requireAccount returns the signed-in account or the guard's redirect.
func (a *app) requireAccount(ctx context.Context) (*farm.Manager, *farm.Account, error) {
	mgr, err := a.manager(ctx)
	if err != nil {
		return nil, nil, err
	}
	acct, err := mgr.RequireSession(ctx, a.sess)
	if err != nil {
		return nil, nil, err
	}
	return mgr, acct, nil
}

func (a *app) whoAmI(ctx context.Context, w io.Writer) error {
	_, acct, err := a.requireAccount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-8s %s\n", "Name:", acct.Name)
	fmt.Fprintf(w, "%-8s %s\n", "Email:", acct.Email)
	if acct.Profile.Farm != "" {
		fmt.Fprintf(w, "%-8s %s\n", "Farm:", acct.Profile.Farm)
	}
	if acct.Profile.Size != "" {
		fmt.Fprintf(w, "%-8s %s\n", "Size:", acct.Profile.Size)
	}
	return nil
}
