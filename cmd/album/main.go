// Command album uploads, lists, deletes and watches photos directly against
// the configured backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/photoalbum/service/internal/apperr"
	"github.com/photoalbum/service/internal/backend"
	"github.com/photoalbum/service/internal/config"
	"github.com/photoalbum/service/internal/logging"
)

// cli carries state shared by the subcommands.
type cli struct {
	cfg     *config.Config
	backend *backend.Backend
}

// load reads configuration and installs the logger.
func (c *cli) load() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg)
	c.cfg = cfg
	return nil
}

// connect configures the backend once per process.
func (c *cli) connect(ctx context.Context) (*backend.Backend, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	if c.backend == nil {
		b, err := backend.Configure(ctx, c.cfg)
		if err != nil {
			return nil, err
		}
		c.backend = b
	}
	return c.backend, nil
}

func (c *cli) close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "album",
		Short:         "Manage the photo album from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newUploadCommand(c),
		newListCommand(c),
		newDeleteCommand(c),
		newWatchCommand(c),
		newTokenCommand(c),
	)
	return root
}

// report prints err, preferring the user-facing alert when it carries one.
func report(err error) {
	if alert, ok := apperr.AlertOf(err); ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", alert.Title, alert.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	c := &cli{}

	err := newRootCommand(c).ExecuteContext(ctx)
	c.close()
	stop()
	if err != nil {
		report(err)
		os.Exit(1)
	}
}
