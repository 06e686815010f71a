package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/and161185/goph-gallery/internal/convert"
	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/render/term"
)

// wsURL turns a server base URL into its /ws endpoint.
func wsURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// printChange writes one change as a terminal line or tile.
func printChange(w io.Writer, s term.Surface, c gallery.Change) error {
	switch c.Kind {
	case gallery.ChangeInserted, gallery.ChangeConfirmed:
		return s.Tile(w, c.Item)
	case gallery.ChangeTagged:
		_, err := fmt.Fprintf(w, "tagged %s: %s\n", c.Item.ID, strings.Join(c.Item.Tags, ", "))
		return err
	case gallery.ChangePending:
		return s.Placeholder(w, gallery.Placeholder{Token: c.Token})
	case gallery.ChangeReleased:
		_, err := fmt.Fprintf(w, "upload %s abandoned\n", c.Token)
		return err
	default:
		_, err := fmt.Fprintf(w, "%s\n", c.Kind)
		return err
	}
}

func watch(ctx context.Context, w io.Writer, endpoint string, asJSON bool, s term.Surface) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var f convert.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil
			}
			return err
		}
		if asJSON {
			if err := printJSON(w, f); err != nil {
				return err
			}
			continue
		}
		c, err := convert.FromFrame(f)
		if err != nil {
			fmt.Fprintln(w, "skipping frame:", err)
			continue
		}
		if err := printChange(w, s, c); err != nil {
			return err
		}
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow live gallery changes from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			endpoint, err := wsURL(server)
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cmd.OutOrStdout(), endpoint, app.JSON, app.surface())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "gallery server base URL")
	return cmd
}
