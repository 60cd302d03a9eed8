package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-toolcall/internal/config"
	"github.com/teslashibe/go-toolcall/internal/log"
	"github.com/teslashibe/go-toolcall/pkg/catalog"
	"github.com/teslashibe/go-toolcall/pkg/controller"
	"github.com/teslashibe/go-toolcall/pkg/predict"
	"github.com/teslashibe/go-toolcall/pkg/projection"
	"github.com/teslashibe/go-toolcall/pkg/realtime"
	"github.com/teslashibe/go-toolcall/pkg/web"
)

type runOptions struct {
	noDashboard bool
	terminal    bool
	reconnects  int
	retryDelay  time.Duration
}

func newRunCmd(g *globals) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to a realtime session and serve its tool calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.noDashboard {
				g.cfg.Dashboard.Enabled = false
			}
			return run(cmd.Context(), g.cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noDashboard, "no-dashboard", false, "disable the web dashboard")
	cmd.Flags().BoolVar(&opts.terminal, "terminal", false, "draw the current tool view in the terminal")
	cmd.Flags().IntVar(&opts.reconnects, "reconnects", 3, "reconnect attempts after the session drops")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", 2*time.Second, "delay between reconnect attempts")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts *runOptions) error {
	if err := cfg.ValidateRealtime(); err != nil {
		return err
	}
	logger := log.L()

	ctrlOpts := []controller.Option{
		controller.WithCatalog(catalog.Default()),
		controller.WithFollowUpDelay(cfg.Session.FollowUpDelay),
		controller.WithLogCapacity(cfg.Session.LogCapacity),
		controller.WithCancelOnReset(cfg.Session.CancelOnReset),
		controller.WithLogger(logger),
	}
	if cfg.Prediction.Endpoint != "" {
		p, err := predict.New(
			predict.WithEndpoint(cfg.Prediction.Endpoint),
			predict.WithTimeout(cfg.Prediction.Timeout),
			predict.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		ctrlOpts = append(ctrlOpts, controller.WithPredictor(p))
	} else {
		logger.Warn("no prediction endpoint configured, enquiries will fail", "env", config.EnvPredictionEndpoint)
	}

	transport := &liveTransport{}
	ctrl, err := controller.New(transport, ctrlOpts...)
	if err != nil {
		return err
	}

	if opts.terminal {
		ctrl.OnChange(terminalRenderer())
	}

	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return ignoreCanceled(ctrl.Run(gctx))
	})

	if cfg.Dashboard.Enabled {
		srv := web.NewServer(ctrl, web.WithPort(cfg.Dashboard.Port), web.WithLogger(logger))
		grp.Go(func() error {
			return srv.Start(gctx)
		})
	}

	grp.Go(func() error {
		return superviseSession(gctx, cfg, opts, ctrl, transport, logger)
	})

	return ignoreCanceled(grp.Wait())
}

// superviseSession dials the realtime endpoint and pumps its events into
// ctrl. A dropped session deactivates the controller; the next successful
// dial activates it again.
func superviseSession(
	ctx context.Context,
	cfg *config.Config,
	opts *runOptions,
	ctrl *controller.Controller,
	transport *liveTransport,
	logger *slog.Logger,
) error {
	failures := 0
	for {
		conn, err := realtime.Dial(ctx, cfg.RealtimeDialURL(),
			realtime.WithAPIKey(cfg.Realtime.APIKey),
			realtime.WithLogger(logger),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			if !realtime.IsRetryable(err) || failures > opts.reconnects {
				return fmt.Errorf("connect realtime session: %w", err)
			}
			logger.Warn("dial failed, retrying", "attempt", failures, "error", err)
			if !sleep(ctx, opts.retryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		transport.set(conn)
		if err := ctrl.Activate(); err != nil {
			conn.Close()
			return err
		}

		pumpEvents(ctx, conn, ctrl)

		transport.set(nil)
		conn.Close()
		if err := ctrl.Deactivate(); err != nil && !errors.Is(err, controller.ErrStopped) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		failures++
		if failures > opts.reconnects {
			return fmt.Errorf("realtime session ended: %w", conn.Err())
		}
		logger.Warn("session dropped, reconnecting", "attempt", failures, "error", conn.Err())
		if !sleep(ctx, opts.retryDelay) {
			return nil
		}
	}
}

// pumpEvents forwards events until the connection ends or ctx is cancelled.
func pumpEvents(ctx context.Context, conn *realtime.Conn, ctrl *controller.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.Events():
			if !ok {
				return
			}
			if err := ctrl.Ingest(ev); err != nil {
				return
			}
		}
	}
}

// liveTransport forwards to whichever connection is current.
type liveTransport struct {
	mu   sync.RWMutex
	conn *realtime.Conn
}

func (t *liveTransport) set(conn *realtime.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

func (t *liveTransport) SendClientEvent(ctx context.Context, ev realtime.ClientEvent) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return realtime.ErrNotConnected
	}
	return conn.SendClientEvent(ctx, ev)
}

// terminalRenderer prints the projection whenever it changes.
func terminalRenderer() func(controller.Snapshot) {
	var last string
	return func(snap controller.Snapshot) {
		out := projection.Terminal(projection.Render(snap.Active, snap.Outcome))
		if out == last {
			return
		}
		last = out
		fmt.Println(out)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
