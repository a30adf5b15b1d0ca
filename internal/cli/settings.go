package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/appshell/internal/app"
)

// ErrNotSet indicates a key without a stored value.
var ErrNotSet = errors.New("no value set")

func newSettingsCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change settings",
		Long: heredoc.Docf(`
			Read and change values in the settings store. Keys are paths
			separated by "/", such as %s.
		`, app.SelectedPluginKey),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.getSetting(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a value",
			Long: heredoc.Doc(`
				Store a value. The value is read as YAML, so numbers, booleans
				and lists keep their type; anything else is a string.
			`),
			Example: heredoc.Doc(`
				appshell settings set editor/fontSize 14
				appshell settings set application/enabledExtensions '[editor, browser]'
			`),
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.setSetting(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list [pattern]",
			Short: "List the settings contributed by enabled modules",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pattern := ""
				if len(args) == 1 {
					pattern = args[0]
				}
				return o.listSettings(cmd, pattern)
			},
		},
	)
	return cmd
}

func (o *options) getSetting(cmd *cobra.Command, key string) (err error) {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	v, ok := a.Settings().Store().Get(key)
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotSet)
	}
	fmt.Fprintln(o.Out, formatValue(v))
	return nil
}

func (o *options) setSetting(cmd *cobra.Command, key, raw string) (err error) {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := a.Settings().SetValue(key, parseValue(raw)); err != nil {
		return err
	}
	return a.Settings().Sync()
}

func (o *options) listSettings(cmd *cobra.Command, pattern string) (err error) {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := a.Load(); err != nil {
		return err
	}

	settings := a.Settings().Manageable()
	if pattern != "" {
		if settings, err = a.Settings().Search(pattern); err != nil {
			return err
		}
	}

	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("KEY", "NAME", "VALUE", "DESCRIPTION")
	for _, s := range settings {
		table.AddRow(s.ID(), s.DisplayName(), formatValue(a.Settings().Current(s.ID())), s.Description())
	}
	fmt.Fprintln(o.Out, table)
	return nil
}

// parseValue reads raw as a YAML scalar or list, falling back to the string.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	if _, ok := v.(map[string]any); ok {
		return raw
	}
	return v
}

func formatValue(v any) string {
	switch v.(type) {
	case []any, []string:
		return "[" + strings.Join(cast.ToStringSlice(v), ", ") + "]"
	}
	return cast.ToString(v)
}
