package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"

	"github.com/dshills/appshell/internal/app"
	"github.com/dshills/appshell/internal/dock"
	"github.com/dshills/appshell/internal/plugin"
)

// tooltipWidth wraps long tooltips.
const tooltipWidth = 60

// textPresenter writes what the application presents as plain text.
type textPresenter struct {
	out io.Writer

	heading func(a ...any) string
	current func(a ...any) string
	faint   func(a ...any) string
}

var _ app.Presenter = (*textPresenter)(nil)

func newTextPresenter(out io.Writer) *textPresenter {
	return &textPresenter{
		out:     out,
		heading: color.New(color.Bold).SprintFunc(),
		current: color.New(color.FgGreen, color.Bold).SprintFunc(),
		faint:   color.New(color.Faint).SprintFunc(),
	}
}

func (p *textPresenter) AddNavigation(pl plugin.Plugin) {
	nav := pl.Navigation()
	fmt.Fprintf(p.out, "%s %s  %s\n", p.heading("nav"), pl.ID(), p.faint("["+nav.Icon+"]"))
	p.writeWrapped(nav.Tooltip)
}

func (p *textPresenter) Navigate(pl plugin.Plugin) {
	fmt.Fprintf(p.out, "%s %s\n", p.current("-->"), pl.ID())
}

func (p *textPresenter) AddDock(d dock.Dock) {
	fmt.Fprintf(p.out, "%s %s  %s\n", p.heading("dock"), d.ID(), d.Title())
	if button := d.StatusBarButton(); button != nil {
		p.writeWrapped(button.Tooltip + " " + p.faint("["+button.Icon+"]"))
	}
}

func (p *textPresenter) writeWrapped(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(wordwrap.WrapString(text, tooltipWidth), "\n") {
		fmt.Fprintf(p.out, "      %s\n", line)
	}
}
