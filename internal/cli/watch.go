package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govsync/internal/adapters/fs"
	"github.com/trebuchet-org/govsync/internal/adapters/httpapi"
	"github.com/trebuchet-org/govsync/internal/adapters/notify"
	"github.com/trebuchet-org/govsync/internal/adapters/progress"
	"github.com/trebuchet-org/govsync/internal/app"
	"github.com/trebuchet-org/govsync/internal/cli/render"
	"github.com/trebuchet-org/govsync/internal/domain/models"
	"github.com/trebuchet-org/govsync/internal/usecase"
)

type watchOptions struct {
	httpAddr string
	natsURL  string
	noTUI    bool
}

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow proposals live as the ledger advances",
		Long: `Keep a live session open against the configured Governor. Every change
to a proposal is shown as it happens. Editing govsync.toml restarts the
session with the new settings.

Optionally serves the cache over HTTP and publishes changes to NATS.`,
		Example: `  govsync watch
  govsync watch --http-addr :8545
  govsync watch --no-tui --json | jq .state`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "Serve the proposal API and metrics on this address")
	cmd.Flags().StringVar(&opts.natsURL, "nats-url", "", "Publish proposal changes to this NATS server")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Print changes line by line instead of the live table")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *watchOptions) error {
	first, err := getApp(cmd)
	if err != nil {
		return err
	}
	v, err := getViper(cmd)
	if err != nil {
		return err
	}
	if first.Config.Network == nil {
		return fmt.Errorf("no network selected, use --network")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &watchRunner{
		v:       v,
		opts:    opts,
		watchID: uuid.NewString(),
		log:     first.Log.With("component", "watch"),
	}

	if !useWatchTUI(first.Config.JSON, first.Config.NonInteractive, opts.noTUI) {
		out := cmd.OutOrStdout()
		runner.emit = lineEmitter(out, first.Config.JSON)
		return runner.run(ctx, first)
	}

	model := newWatchModel(first.Config.Network.Name, colorEnabled(cmd))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	runner.emit = p.Send

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		err := runner.run(runCtx, first)
		if err != nil {
			p.Send(errMsg{err: err, fatal: true})
		}
		done <- err
	}()

	_, progErr := p.Run()
	cancel()
	runErr := <-done
	if runErr != nil {
		return runErr
	}
	if progErr != nil && ctx.Err() == nil {
		return fmt.Errorf("watch view failed: %w", progErr)
	}
	return nil
}

// useWatchTUI reports whether the live table should be shown
func useWatchTUI(jsonOut, nonInteractive, noTUI bool) bool {
	return !jsonOut && !nonInteractive && !noTUI
}

// lineEmitter prints one line per change, as JSON when requested
func lineEmitter(out io.Writer, jsonOut bool) func(tea.Msg) {
	enc := json.NewEncoder(out)
	return func(msg tea.Msg) {
		switch msg := msg.(type) {
		case recordMsg:
			if jsonOut {
				_ = enc.Encode(msg.record)
				return
			}
			fmt.Fprintln(out, formatChangeLine(msg.record))
		case resetMsg:
			if !jsonOut {
				fmt.Fprintf(out, "watching %s\n", msg.network)
			}
		case errMsg:
			fmt.Fprintln(os.Stderr, render.FormatError(msg.err.Error()))
		}
	}
}

// formatChangeLine renders a record change as a single log-style line
func formatChangeLine(r *models.ProposalRecord) string {
	title := r.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s %-9s for=%s against=%s abstain=%s %s",
		r.ID.Short(), r.State, render.FormatVotes(r.Votes.For), render.FormatVotes(r.Votes.Against),
		render.FormatVotes(r.Votes.Abstain), title)
}

// watchGeneration is everything built from one configuration
type watchGeneration struct {
	session   *usecase.SyncSession
	server    *httpapi.Server
	publisher *notify.Publisher
	cleanup   func()
	cancel    context.CancelFunc
	log       *slog.Logger
}

func (g *watchGeneration) close() {
	g.cancel()
	if g.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := g.server.Shutdown(ctx); err != nil {
			g.log.Warn("failed to stop proposal API", "error", err)
		}
		cancel()
	}
	g.session.Close()
	if g.publisher != nil {
		if err := g.publisher.Close(); err != nil {
			g.log.Warn("failed to close NATS publisher", "error", err)
		}
	}
	if g.cleanup != nil {
		g.cleanup()
	}
}

type watchRunner struct {
	v       *viper.Viper
	opts    *watchOptions
	watchID string
	log     *slog.Logger
	emit    func(tea.Msg)
}

// run drives sessions until ctx is done, rebuilding on config edits
func (r *watchRunner) run(ctx context.Context, first *app.App) error {
	gen, err := r.start(ctx, first, nil)
	if err != nil {
		return err
	}
	defer func() {
		if gen != nil {
			gen.close()
		}
	}()

	var changes <-chan struct{}
	if path := first.Config.ConfigFile; path != "" {
		watcher, err := fs.NewConfigWatcher(path, 0, r.log)
		if err != nil {
			r.log.Warn("config reload disabled", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			r.log.Warn("config reload disabled", "error", err)
		} else {
			defer watcher.Stop()
			changes = watcher.Changes()
		}
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if gen != nil {
				r.emit(statusMsg{
					height:    gen.session.CurrentHeight(),
					ledgerNow: gen.session.CurrentTime(),
					blockTime: gen.session.BlockTimeEstimate(),
				})
			}
		case <-changes:
			r.log.Info("configuration changed, restarting session")
			if gen != nil {
				gen.close()
				gen = nil
			}
			next, cleanup, err := app.InitApp(r.v, progress.NewNopSink())
			if err != nil {
				r.emit(errMsg{err: fmt.Errorf("reload failed: %w", err)})
				continue
			}
			if next.Config.Network == nil {
				cleanup()
				r.emit(errMsg{err: fmt.Errorf("reload failed: no network selected")})
				continue
			}
			gen, err = r.start(ctx, next, cleanup)
			if err != nil {
				cleanup()
				r.emit(errMsg{err: fmt.Errorf("reload failed: %w", err)})
			}
		}
	}
}

// start opens a session for a and attaches the optional outputs
func (r *watchRunner) start(ctx context.Context, a *app.App, cleanup func()) (*watchGeneration, error) {
	network := a.Config.Network
	if network.ChainID != 0 {
		if _, err := a.Client.VerifyChainID(ctx, network.ChainID); err != nil {
			return nil, err
		}
	}

	genCtx, cancel := context.WithCancel(ctx)
	gen := &watchGeneration{cleanup: cleanup, cancel: cancel, log: r.log}

	params := usecase.WatchProposalsParams{
		OnChange: func(record *models.ProposalRecord) {
			r.emit(recordMsg{record: record})
		},
	}
	if r.opts.natsURL != "" {
		pub, err := notify.Connect(r.opts.natsURL, network.Name, r.watchID, a.Log)
		if err != nil {
			cancel()
			return nil, err
		}
		gen.publisher = pub
		params.Publisher = pub
	}

	r.emit(resetMsg{network: network.Name})

	session, err := a.WatchProposals.Run(genCtx, params)
	if err != nil {
		cancel()
		if gen.publisher != nil {
			_ = gen.publisher.Close()
		}
		return nil, err
	}
	gen.session = session

	if r.opts.httpAddr != "" {
		srv := httpapi.NewServer(r.opts.httpAddr, a.Metrics.Registry(), a.Log)
		srv.SetView(session)
		gen.server = srv
		go func() {
			if err := srv.Start(); err != nil {
				r.emit(errMsg{err: fmt.Errorf("proposal API: %w", err)})
			}
		}()
	}

	r.emit(statusMsg{
		height:    session.CurrentHeight(),
		ledgerNow: session.CurrentTime(),
		blockTime: session.BlockTimeEstimate(),
	})
	return gen, nil
}
