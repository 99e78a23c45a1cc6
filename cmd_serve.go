package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agri-smart/store"
	"agri-smart/web"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API",
		Long: `Serve the dashboard JSON API until interrupted.

All requests share one session, as the browser version shared one profile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mgr, err := a.manager(ctx)
			if err != nil {
				return err
			}
			adv, err := a.advisor(ctx)
			if err != nil {
				return err
			}
			if !adv.Enabled() {
				a.log.Warn("advisor disabled: no API key configured")
			}
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			srv := web.New(mgr, a.gateway(), adv, web.Options{
				Session:       a.sess,
				DashboardPath: a.cfg.HTTP.DashboardPath,
				Logger:        a.log,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump every stored key as one JSON object",
		Long: `Dump every stored key as one JSON object of string values, the shape a
browser's local storage serializes to. Load it back with import_storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mgr, err := a.manager(ctx)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			n, err := store.Export(ctx, mgr.Store(), w)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			a.log.Info("exported storage", zap.Int("keys", n), zap.String("out", out))
			if out != "" {
				success(cmd.OutOrStdout(), "Exported %d keys to %s", n, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
