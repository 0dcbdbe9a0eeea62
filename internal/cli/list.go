package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/RevCBH/heathook/internal/engine"
	"github.com/RevCBH/heathook/internal/labels"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// ListOptions holds flags for the list command
type ListOptions struct {
	ConfigID string // Only containers of this config
}

// NewListCmd creates the list command
func NewListCmd(app *App) *cobra.Command {
	opts := ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List containers managed by docker-cmd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.List(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigID, "config-id", "", "Only list containers of this config id")

	return cmd
}

// List prints the managed containers with their decoded labels
func (a *App) List(ctx context.Context, opts ListOptions) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}

	q := labels.Managed()
	if opts.ConfigID != "" {
		q = q.With(labels.KeyConfigID, opts.ConfigID)
	}

	client := engine.NewClient(a.runner, cfg.DockerCmd.Command, log)
	rows, err := client.List(ctx, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.stdout, "No managed containers")
		return nil
	}

	printTable(a.stdout, rows, listStylesFor(a.stdout))
	return nil
}

var listHeaders = []string{"NAME", "CONTAINER", "CONFIG ID", "STACK", "RESOURCE"}

type listStyles struct {
	header lipgloss.Style
	name   lipgloss.Style
	cell   lipgloss.Style
}

// listStylesFor colors the table only when w is a terminal
func listStylesFor(w io.Writer) listStyles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return listStyles{header: plain, name: plain, cell: plain}
	}
	return listStyles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		name:   lipgloss.NewStyle().Bold(true),
		cell:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func printTable(w io.Writer, rows []engine.Listed, styles listStyles) {
	table := [][]string{listHeaders}
	for _, row := range rows {
		set := labels.FromMap(row.Labels)
		table = append(table, []string{row.Name, set.ContainerName, set.ConfigID, set.StackID, set.ResourceName})
	}

	widths := make([]int, len(listHeaders))
	for _, cells := range table {
		for i, cell := range cells {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for r, cells := range table {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			style := styles.cell
			switch {
			case r == 0:
				style = styles.header
			case i == 0:
				style = styles.name
			}
			if i < len(cells)-1 {
				style = style.Width(widths[i] + 2)
			}
			rendered[i] = style.Render(cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(rendered, ""), " "))
	}
}
