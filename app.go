package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"agri-smart/config"
	"agri-smart/farm"
	"agri-smart/forecast"
	"agri-smart/logging"
)

// app carries state shared by every subcommand. The manager, gateway and
// advisor are built on first use so commands that need none of them never
// open the store.
type app struct {
	cfgPath string
	dbPath  string
	backend string
	verbose bool

	stdin io.Reader
	sc    *bufio.Scanner
	sess  farm.Session

	cfg *config.Config
	log *zap.Logger
	mgr *farm.Manager
	gw  *forecast.Gateway
	adv *forecast.Advisor
}

func newApp(stdin io.Reader) *app {
	return &app{
		stdin: stdin,
		sc:    bufio.NewScanner(stdin),
		sess:  farm.DefaultSession,
	}
}

// execute runs the command line in args and releases everything it opened.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := newApp(stdin)
	defer a.close()
	return a.run(ctx, args, stdout, stderr)
}

func (a *app) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "agrismart",
		Short: "AgriSmart farm dashboard, equipment rental and market forecasts",
		Long: `AgriSmart keeps a farm dashboard, an equipment rental catalog and
crop price forecasts behind one command line.

Run without a subcommand to start the interactive shell.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.shell(cmd.Context(), cmd.OutOrStdout())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "path to the YAML config (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path, overrides storage.path")
	pf.StringVar(&a.backend, "backend", "", "storage backend: sqlite, redis or memory")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newSignOutCmd(a),
		newWhoAmICmd(a),
		newListingsCmd(a),
		newBookCmd(a),
		newBookingsCmd(a),
		newDashboardCmd(a),
		newAdviceCmd(a),
		newAnalyticsCmd(a),
		newDemoPredictCmd(a),
		newSavePredictionCmd(a),
		newPredictionsCmd(a),
		newMarketCmd(a),
		newPredictCmd(a),
		newSnapshotCmd(a),
		newAdviseCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newShellCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath, func(c *config.Config) {
		if a.backend != "" {
			c.Storage.Backend = a.backend
		}
		if a.dbPath != "" {
			c.Storage.Path = a.dbPath
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	if a.log == nil {
		log, err := logging.New(cfg.Logging, a.verbose)
		if err != nil {
			return err
		}
		a.log = log
	}
	a.log.Debug("config loaded",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path))
	return nil
}

func (a *app) manager(ctx context.Context) (*farm.Manager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	mgr, err := farm.OpenManager(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.mgr = mgr
	return mgr, nil
}

func (a *app) gateway() *forecast.Gateway {
	if a.gw == nil {
		a.gw = forecast.NewFromConfig(a.cfg.Forecast, a.log)
	}
	return a.gw
}

func (a *app) advisor(ctx context.Context) (*forecast.Advisor, error) {
	if a.adv != nil {
		return a.adv, nil
	}
	adv, err := forecast.NewAdvisorFromConfig(ctx, a.cfg.Advisor, a.log)
	if err != nil {
		return nil, fmt.Errorf("create advisor: %w", err)
	}
	a.adv = adv
	return adv, nil
}

func (a *app) close() {
	if a.mgr != nil {
		if err := a.mgr.Close(); err != nil {
			a.log.Warn("close storage", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// ask prints prompt and reads one trimmed line. ok is false at end of input.
func (a *app) ask(w io.Writer, prompt string) (string, bool) {
	fmt.Fprint(w, prompt)
	if !a.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.sc.Text()), true
}

// readPassword reads a password with masking when stdin is a terminal and
// as a plain line otherwise.
func (a *app) readPassword(w io.Writer, prompt string) (string, error) {
	f, ok := a.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		line, _ := a.ask(w, prompt)
		return line, nil
	}
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
