package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abelbrown/geocomplete/internal/store"
)

var (
	historyLimit int
	historyClear bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show places committed in the TUI",
	Long: `Lists committed selections, most recent first. Selecting the same place
again bumps its use count.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all history")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func runHistory(cmd *cobra.Command, _ []string) error {
	st, err := app.OpenStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if historyClear {
		n, err := st.ClearSelections()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "cleared %s\n", pluralize(int(n), "selection"))
		return nil
	}

	sels, err := st.RecentSelections(historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		if sels == nil {
			sels = []store.Selection{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sels)
	}

	if len(sels) == 0 {
		fmt.Fprintln(out, "no selections yet")
		return nil
	}

	total, err := st.CountSelections()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, historyTable(sels))
	if total > len(sels) {
		fmt.Fprintf(out, "showing %d of %s\n", len(sels), pluralize(total, "selection"))
	}
	return nil
}

func historyTable(sels []store.Selection) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("PLACE", "TERM", "USES", "LAST", "POINT").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, s := range sels {
		point := ""
		if s.Point != nil {
			point = fmt.Sprintf("%.4f,%.4f", s.Point.Lat, s.Point.Lon)
		}
		t.Row(
			truncate(s.Label, 48),
			truncate(s.Term, 20),
			humanize.Comma(int64(s.Uses)),
			humanize.Time(s.SelectedAt),
			point,
		)
	}
	return t.String()
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return humanize.Comma(int64(n)) + " " + noun + "s"
}
