// Command notifywatch polls a user's notification feed and logs unread counts
// until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/yukikurage/stellar-tasks/internal/client"
	"github.com/yukikurage/stellar-tasks/internal/constants"
	"github.com/yukikurage/stellar-tasks/internal/poller"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "notifywatch:", err)
		os.Exit(1)
	}
}

func run() error {
	server := pflag.StringP("server", "s", "http://localhost:8080", "base URL of the task API")
	token := pflag.StringP("token", "t", os.Getenv("TASKS_TOKEN"), "bearer token (defaults to $TASKS_TOKEN)")
	interval := pflag.DurationP("interval", "i", constants.NotificationPollInterval, "time between polls")
	timeout := pflag.Duration("timeout", constants.DefaultRequestTimeout, "timeout for each poll")
	verbose := pflag.BoolP("verbose", "v", false, "log every notification, not just counts")
	pflag.Parse()

	if *token == "" {
		return errors.New("a bearer token is required (--token or TASKS_TOKEN)")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	api := client.New(*server, *token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lastUnread := -1
	fetchErr := make(chan error, 1)
	p := poller.New(func(ctx context.Context) error {
		feed, err := api.Notifications(ctx)
		if err != nil {
			return err
		}
		if feed.UnreadCount != lastUnread {
			logger.Info("notifications",
				slog.Int("unread", feed.UnreadCount),
				slog.Int("total", len(feed.Notifications)))
			lastUnread = feed.UnreadCount
		}
		if *verbose {
			for _, n := range feed.Notifications {
				logger.Info("notice",
					slog.Uint64("task_id", n.TaskID),
					slog.String("message", n.Message),
					slog.Bool("read", n.Read),
					slog.Time("created_at", n.CreatedAt))
			}
		}
		return nil
	},
		poller.WithInterval(*interval),
		poller.WithFetchTimeout(*timeout),
		poller.WithErrorHandler(func(err error) {
			if errors.Is(err, client.ErrUnauthorized) {
				select {
				case fetchErr <- err:
				default:
				}
				return
			}
			logger.Warn("poll failed", slog.Any("err", err))
		}),
	)

	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Stop()

	select {
	case <-ctx.Done():
		logger.Info("stopping", slog.Duration("interval", *interval), slog.Time("at", time.Now()))
		return nil
	case err := <-fetchErr:
		return err
	}
}
