package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/medalert/internal/audio"
	"github.com/julianstephens/medalert/internal/cli"
	"github.com/julianstephens/medalert/internal/control"
	"github.com/julianstephens/medalert/internal/dispatcher"
	"github.com/julianstephens/medalert/internal/logger"
	"github.com/julianstephens/medalert/internal/models"
	"github.com/julianstephens/medalert/internal/tray"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd runs the daemon: it fires scheduled alerts, plays alarms and
// answers the CLI over the control API.
type ServeCmd struct {
	Listen string `help:"Address for the control API." default:"127.0.0.1:0"`
	Silent bool   `help:"Do not open an audio device; alarms are tracked but not audible."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(runCtx, ctx, audio.NewDefaultPlayer(c.Silent), tray.DesktopNotifier{})
}

func (c *ServeCmd) run(runCtx context.Context, ctx *cli.Context, player audio.Player, notifier tray.Notifier) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	tr := tray.New(ctx.AlertStore(),
		tray.WithClock(ctx.GetClock()),
		tray.WithNotifier(notifier),
		tray.WithResyncInterval(settings.ResyncInterval),
		tray.WithNotifications(settings.NotificationsEnabled),
	)
	d := dispatcher.New(tr, player, notifier, settings, dispatcher.WithClock(ctx.GetClock()))
	defer d.Shutdown()

	tr.OnDeliver(func(deliverCtx context.Context, entry models.AlertEntry) {
		d.Received(deliverCtx, entry)
	})
	if err := tr.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start tray: %w", err)
	}
	defer func() {
		if err := tr.Shutdown(); err != nil {
			logger.Warn("Failed to stop tray", "error", err)
		}
	}()

	secret := uuid.NewString()
	srv := control.NewServer(d, tr, secret)
	port, err := srv.Listen(c.Listen)
	if err != nil {
		return err
	}

	lockPath := control.LockfilePath(ctx.ConfigDir)
	if err := control.WriteLockfile(lockPath, port, secret); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}
	defer func() {
		if err := control.RemoveLockfile(lockPath); err != nil {
			logger.Warn("Failed to remove lockfile", "path", lockPath, "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()
	go watchSettings(runCtx, ctx, d, tr, settings)

	logger.Info("Daemon started", "port", port, "pid", os.Getpid())
	fmt.Printf("medalert daemon listening on 127.0.0.1:%d\n", port)

	select {
	case <-runCtx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("Failed to stop control API", "error", serr)
	}
	logger.Info("Daemon stopped")
	return err
}

// watchSettings applies policy changes saved by the CLI while the daemon runs.
func watchSettings(runCtx context.Context, ctx *cli.Context, d *dispatcher.Dispatcher, tr *tray.Tray, current models.Settings) {
	ticker := ctx.GetClock().NewTicker(current.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			return
		case <-ticker.Chan():
		}

		next, err := ctx.Store.GetSettings()
		if err != nil {
			logger.Warn("Failed to reload settings", "error", err)
			continue
		}
		if next == current {
			continue
		}
		d.UpdateSettings(next)
		tr.SetNotificationsEnabled(next.NotificationsEnabled)
		if next.ResyncInterval != current.ResyncInterval {
			if err := tr.SetResyncInterval(next.ResyncInterval); err != nil {
				logger.Warn("Failed to apply resync interval", "error", err)
			}
			ticker.Reset(next.ResyncInterval)
		}
		current = next
		logger.Info("Settings reloaded")
	}
}
