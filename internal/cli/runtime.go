package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"veriledger/internal/access"
	"veriledger/internal/config"
	"veriledger/internal/epoch"
	"veriledger/internal/ledger"
	"veriledger/internal/store"
	"veriledger/internal/velocity"
)

// runtime is the fully wired system a command operates on: the store, the
// restored engines, and the shared epoch clock.
type runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *store.Store
	clock  *epoch.Clock
	acl    *access.Controller
	ledger *ledger.Ledger
	engine *velocity.Engine
	caller access.Principal
}

// openRuntime loads configuration, opens the store, and rebuilds the
// engines from persisted state. Callers must Close the runtime.
func openRuntime(ctx context.Context, opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	dbPath := cfg.Store.Path
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open store %s", dbPath), err)
	}

	savedEpoch, err := s.LoadEpoch(ctx)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "load epoch", err)
	}
	clock := epoch.NewClockAt(savedEpoch)

	acl := access.NewController(access.Principal(cfg.App.Admin), clock, s)
	grants, err := s.LoadReporterGrants(ctx)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "load reporter grants", err)
	}
	for _, g := range grants {
		acl.RestoreGrant(g)
	}

	l := ledger.New(clock, acl, s, cfg.LedgerOptions()...)
	ledgerState, err := s.LoadLedgerState(ctx)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "load ledger state", err)
	}
	l.Restore(ledgerState)

	e := velocity.New(clock, acl, s, cfg.VelocityOptions()...)
	velocityState, err := s.LoadVelocityState(ctx)
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "load velocity state", err)
	}
	e.Restore(velocityState)

	caller := access.Principal(cfg.App.Admin)
	if opts.Caller != "" {
		caller = access.Principal(opts.Caller)
	}

	return &runtime{
		cfg:    cfg,
		log:    newLogger(opts),
		store:  s,
		clock:  clock,
		acl:    acl,
		ledger: l,
		engine: e,
		caller: caller,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.store.Close()
}

// newLogger builds the structured logger. Diagnostic output goes to stderr
// so stdout stays clean for command results.
func newLogger(opts *RootOptions) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// formatter builds the output formatter bound to a command's streams.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
