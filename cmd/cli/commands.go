package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/goph-gallery/internal/convert"
	"github.com/and161185/goph-gallery/internal/migrate"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render"
	"github.com/and161185/goph-gallery/internal/service"
	"github.com/and161185/goph-gallery/internal/tagindex"
	"github.com/and161185/goph-gallery/internal/upload"
)

const cmdTimeout = 2 * time.Minute

func newUploadCmd(app *App) *cobra.Command {
	var head, title, tags, contentType string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image or video (FILE may be - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readAll(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()
			be, err := app.backend(ctx)
			if err != nil {
				return err
			}
			defer be.Close()

			o := upload.New(be.Blobs, be.Records, upload.WithLogger(app.logger().Named("upload")))
			item, err := o.Submit(ctx, model.Upload{
				FileName:    filepath.Base(args[0]),
				ContentType: contentType,
				Body:        body,
				Head:        head,
				Title:       title,
				Tags:        tags,
			})
			if item.ID.IsNil() {
				return err
			}
			if err != nil {
				// stored with an incomplete tag set
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
			}
			if app.JSON {
				return printJSON(cmd.OutOrStdout(), convert.ToMedia(item))
			}
			return app.surface().Detail(cmd.OutOrStdout(), item)
		},
	}
	cmd.Flags().StringVar(&head, "head", "", "heading (<= 64 characters)")
	cmd.Flags().StringVar(&title, "title", "", "caption (<= 1024 characters)")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags (required)")
	cmd.Flags().StringVar(&contentType, "type", "", "content type (sniffed when empty)")
	return cmd
}

// withCatalog opens the configured store and runs fn against its catalog.
func withCatalog(cmd *cobra.Command, app *App, fn func(ctx context.Context, c *service.Catalog) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()
	be, err := app.backend(ctx)
	if err != nil {
		return err
	}
	defer be.Close()
	cfg, _ := app.config()
	return fn(ctx, service.NewCatalog(be.Records, cfg.MaxTags))
}

func newListCmd(app *App) *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media, newest first, optionally carrying every --tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, app, func(ctx context.Context, c *service.Catalog) error {
				all, err := c.List(ctx)
				if err != nil {
					return err
				}
				items := all
				if len(tagindex.NormalizeSet(tags)) > 0 {
					if items, err = c.Filter(ctx, tags); err != nil {
						return err
					}
				}
				if app.JSON {
					return printJSON(cmd.OutOrStdout(), convert.ToMedias(items))
				}
				return render.Grid(app.surface(), cmd.OutOrStdout(), render.View{
					Total:    len(all),
					Items:    items,
					Selected: tagindex.NormalizeSet(tags),
				})
			})
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "required tag (repeatable)")
	return cmd
}

func newTagsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Show the tag vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, app, func(ctx context.Context, c *service.Catalog) error {
				tags, err := c.Tags(ctx)
				if err != nil {
					return err
				}
				if app.JSON {
					return printJSON(cmd.OutOrStdout(), tags)
				}
				return render.TagBar(app.surface(), cmd.OutOrStdout(), render.View{Vocabulary: tags})
			})
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one media item in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.FromString(args[0])
			if err != nil {
				return fmt.Errorf("bad id %q: %w", args[0], err)
			}
			return withCatalog(cmd, app, func(ctx context.Context, c *service.Catalog) error {
				item, err := c.Get(ctx, id)
				if err != nil {
					return err
				}
				if app.JSON {
					return printJSON(cmd.OutOrStdout(), convert.ToMedia(item))
				}
				return app.surface().Detail(cmd.OutOrStdout(), item)
			})
		},
	}
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply record store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
			defer cancel()
			if err := migrate.Up(ctx, cfg.Store.Driver, cfg.Store.DSN, app.logger()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s migrations applied\n", cfg.Store.Driver)
			return err
		},
	}
}
