package cli

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

// ErrUnknownExtension indicates an id that no repository lists.
var ErrUnknownExtension = errors.New("unknown extension")

func newExtensionsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extensions",
		Aliases: []string{"ext"},
		Short:   "Manage extension modules",
		Long: heredoc.Doc(`
			List the modules of the configured repositories and choose which
			ones load at startup. Changes are persisted when the command ends.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List known modules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.listExtensions(cmd)
			},
		},
		&cobra.Command{
			Use:   "enable <id>...",
			Short: "Enable modules",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.setExtensions(cmd, args, true)
			},
		},
		&cobra.Command{
			Use:   "disable <id>...",
			Short: "Disable modules",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.setExtensions(cmd, args, false)
			},
		},
	)
	return cmd
}

func (o *options) listExtensions(cmd *cobra.Command) (err error) {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := loadModules(a); err != nil {
		return err
	}

	enabled := color.New(color.FgGreen).SprintFunc()
	disabled := color.New(color.Faint).SprintFunc()

	modules := a.Plugins().Modules()
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("ID", "ENABLED", "EXTENSION", "DESCRIPTION")
	for i := 0; i < modules.Len(); i++ {
		m, _ := modules.At(i)
		row, _ := modules.Row(i)
		state := disabled("no")
		if modules.Checked(i) {
			state = enabled("yes")
		}
		table.AddRow(m.ID, state, row[0], row[1])
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

func (o *options) setExtensions(cmd *cobra.Command, ids []string, enable bool) (err error) {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := loadModules(a); err != nil {
		return err
	}

	modules := a.Plugins().Modules()
	for _, id := range ids {
		if _, ok := modules.Find(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownExtension, id)
		}
	}
	for _, id := range ids {
		modules.SetEnabledByID(id, enable)
	}
	if err := a.Plugins().PersistEnabled(a.EnabledExtensions()); err != nil {
		return err
	}

	verb := "disabled"
	if enable {
		verb = "enabled"
	}
	for _, id := range ids {
		fmt.Fprintf(o.Out, "%s %s\n", id, verb)
	}
	return nil
}
