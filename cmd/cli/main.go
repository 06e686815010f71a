// Command gallery is a command line client for the media gallery. It talks to
// the configured stores directly and follows a running server over websocket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/backend"
	"github.com/and161185/goph-gallery/internal/config"
	"github.com/and161185/goph-gallery/internal/logging"
	"github.com/and161185/goph-gallery/internal/render/term"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// App carries global flags and lazily opened state shared by commands.
type App struct {
	ConfigPath string
	JSON       bool
	Verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func (a *App) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *App) logger() *zap.Logger {
	if a.log != nil {
		return a.log
	}
	level := "warn"
	if a.Verbose {
		level = "debug"
	}
	l, err := logging.New(true, level)
	if err != nil {
		l = zap.NewNop()
	}
	a.log = l
	return l
}

func (a *App) backend(ctx context.Context) (*backend.Backend, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, cfg, a.logger())
}

func (a *App) surface() term.Surface { return term.Surface{Width: 72} }

func newRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "gallery",
		Short:        "Tag-filtered media gallery client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  gallery upload cat.png --head "Cat" --tags cats,pets
  gallery list --tag cats --tag pets
  gallery watch --server http://localhost:8080
`),
	}
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", os.Getenv("GALLERY_CONFIG"), "config file")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "print JSON instead of styled text")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(
		newVersionCmd(),
		newUploadCmd(app),
		newListCmd(app),
		newTagsCmd(app),
		newShowCmd(app),
		newWatchCmd(app),
		newMigrateCmd(app),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "gallery %s (%s)\n", version, buildDate)
			return err
		},
	}
}

// ---- utils ----

func readAll(in io.Reader, p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
