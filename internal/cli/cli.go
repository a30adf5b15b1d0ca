// Package cli implements the appshell command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/appshell/internal/app"
	"github.com/dshills/appshell/internal/logging"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// IOStreams are the standard streams of a command.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// options are the persistent flags shared by every command.
type options struct {
	configPath   string
	logLevel     string
	repositories []string
	isolate      bool

	IOStreams
}

// NewDefaultCommand creates the root command on the process streams.
func NewDefaultCommand() *cobra.Command {
	return NewRootCommand(IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

// NewRootCommand creates the appshell command tree.
func NewRootCommand(streams IOStreams) *cobra.Command {
	o := &options{IOStreams: streams}

	cmd := &cobra.Command{
		Use:   "appshell",
		Short: "appshell hosts extension modules",
		Long: heredoc.Doc(`
			appshell is an application shell driven by extension modules.

			Modules are listed in repository manifests. Enabled modules are
			scanned for Lua code units whose plugin classes contribute
			navigation entries, docks and settings.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to the configuration file")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringSliceVarP(&o.repositories, "repository", "r", nil, "repository manifest (repeatable)")
	flags.BoolVar(&o.isolate, "isolate", false, "skip failing code units instead of aborting")

	cmd.AddCommand(
		newRunCommand(o),
		newExtensionsCommand(o),
		newSettingsCommand(o),
		newVersionCommand(o),
	)
	return cmd
}

// newApp bootstraps an application from the configuration and flags.
func (o *options) newApp(cmd *cobra.Command, opts ...app.Option) (*app.Application, error) {
	cfg, err := app.LoadConfig(o.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: o.ErrOut,
		JSON:   cfg.LogJSON,
	})
	return app.New(cfg, append([]app.Option{app.WithLogger(logger)}, opts...)...)
}

// loadModules fills the module list from the configured repositories and
// marks the stored selection enabled, without loading any plugin.
func loadModules(a *app.Application) error {
	svc := a.Plugins()
	for _, path := range a.Config().Repositories {
		if err := svc.AddModulesFromRepository(path); err != nil {
			return err
		}
	}
	for _, id := range a.EnabledExtensions().ReadList() {
		svc.Modules().SetEnabledByID(id, true)
	}
	return nil
}

func newVersionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(o.Out, "appshell %s\n", Version)
			fmt.Fprintf(o.Out, "Commit: %s\n", Commit)
			fmt.Fprintf(o.Out, "Built: %s\n", Date)
		},
	}
}
