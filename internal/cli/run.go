package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/appshell/internal/app"
)

func newRunCommand(o *options) *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the enabled modules and present them",
		Long: heredoc.Doc(`
			Load the enabled modules in the background, then present the
			navigation entries by priority, the current page and the docks.

			With --serve the shell keeps running until interrupted and
			reports settings edited outside the process.
		`),
		Example: heredoc.Doc(`
			# Run with a repository manifest
			appshell run -r ./modules/repository.json

			# Keep running and watch the settings file
			appshell run --serve
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, serve)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "keep running until interrupted")
	return cmd
}

func (o *options) run(cmd *cobra.Command, serve bool) (err error) {
	a, err := o.newApp(cmd, app.WithPresenter(newTextPresenter(o.Out)))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loadErr error
	if _, err := a.LoadAsync(func(err error) {
		loadErr = err
		if err == nil {
			loadErr = a.Run()
		}
		if loadErr != nil || !serve {
			a.Loop().Close()
		}
	}); err != nil {
		return err
	}

	if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return loadErr
}
