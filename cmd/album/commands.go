package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/photoalbum/service/internal/auth"
	"github.com/photoalbum/service/internal/backend"
	"github.com/photoalbum/service/internal/gallery"
	"github.com/photoalbum/service/internal/uiloop"
	"github.com/photoalbum/service/internal/upload"
)

func newUploadCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Compress an image and add it to the album",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}

			picker := upload.NewPicker(upload.NewFlow(b.Objects, b.Posts, nil, c.cfg.JPEGQuality))
			picker.Pick(data)
			p, err := picker.Submit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ImageKey, b.Objects.PublicURL(p.ImageKey))
			return nil
		},
	}
}

// newGallery builds a gallery for one command. Failures reach the user
// through the returned errors, so no alert hook is installed.
func newGallery(b *backend.Backend, concurrency int, loop *uiloop.Loop) *gallery.Gallery {
	return gallery.New(b.Objects, b.Posts, loop, gallery.Options{Concurrency: concurrency})
}

func newListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Download every photo and print the gallery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			loop := uiloop.New()
			defer loop.Close()
			g := newGallery(b, c.cfg.FetchConcurrency, loop)

			refreshErr := g.Refresh(cmd.Context())
			snap, err := g.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tKEY\tFORMAT\tSIZE\tURL")
			for i, img := range snap.Items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%s\n", i, img.Key, img.Format, img.Width, img.Height, b.Objects.PublicURL(img.Key))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if refreshErr == nil && snap.State == gallery.Empty {
				fmt.Fprintf(os.Stderr, "%s: %s\n", gallery.EmptyAlert.Title, gallery.EmptyAlert.Message)
			}
			return refreshErr
		},
	}
}

func newDeleteCommand(c *cli) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "delete [<key> | --index N]",
		Short: "Delete a photo and its record",
		Long:  "Delete a photo by object key, or by its position in the list output.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byIndex := cmd.Flags().Changed("index")
			switch {
			case byIndex && len(args) == 1:
				return errors.New("give either a key or --index, not both")
			case !byIndex && len(args) == 0:
				return errors.New("a key or --index is required")
			case byIndex && index < 0:
				return fmt.Errorf("invalid index %d", index)
			}

			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			loop := uiloop.New()
			defer loop.Close()
			g := newGallery(b, c.cfg.FetchConcurrency, loop)

			if !byIndex {
				if err := g.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			}

			// Positions match the list output, so the grid is loaded first.
			if err := g.Refresh(cmd.Context()); err != nil {
				return err
			}
			img, _ := g.At(index)
			if err := g.DeleteAt(cmd.Context(), index); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", img.Key)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "position of the photo in the list output")
	return cmd
}

func newWatchCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print post changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			events, cancel := b.Feed.Subscribe()
			defer cancel()

			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(func() error { return b.Feed.Run(ctx) })
			eg.Go(func() error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						if err := enc.Encode(ev); err != nil {
							return err
						}
					}
				}
			})
			return eg.Wait()
		},
	}
}

func newTokenCommand(c *cli) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(); err != nil {
				return err
			}
			token, err := auth.IssueToken(c.cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	return cmd
}
