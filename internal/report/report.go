// Package report renders violation tallies for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/phobologic/swiftlint-autodetect/internal/model"
)

// badCount is the count at which a rule is highlighted as severe.
const badCount = 10

// FixableMarker follows the identifier of correctable rules.
const FixableMarker = "(*)"

var (
	fixableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Underline(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Style controls terminal decoration.
type Style struct {
	Color bool
}

// Top returns the first n entries of tally. If n <= 0 or n >= len(tally),
// tally is returned unchanged.
func Top(tally []model.RuleCount, n int) []model.RuleCount {
	if n <= 0 || n >= len(tally) {
		return tally
	}
	return tally[:n]
}

// Lines writes one "rule (*): count" line per entry in tally order. Rules
// missing from reg are printed without the fixable marker.
func Lines(w io.Writer, tally []model.RuleCount, reg *model.Registry, style Style) error {
	for _, rc := range tally {
		name := rc.RuleID
		if r, ok := reg.Get(rc.RuleID); ok && r.Correctable() {
			name += " " + paint(fixableStyle, FixableMarker, style)
		}

		count := strconv.Itoa(rc.Count)
		if rc.Count >= badCount {
			count = paint(badStyle, count, style)
		} else {
			count = paint(warningStyle, count, style)
		}

		if _, err := fmt.Fprintf(w, "%s: %s\n", name, count); err != nil {
			return err
		}
	}
	return nil
}

// Table writes tally as a bordered table with rule metadata.
func Table(w io.Writer, tally []model.RuleCount, reg *model.Registry) error {
	table := tablewriter.NewWriter(w)
	table.Header("Rule", "Violations", "Fixable", "Kind")
	for _, rc := range tally {
		fixable, kind := "no", ""
		if r, ok := reg.Get(rc.RuleID); ok {
			if r.Correctable() {
				fixable = "yes"
			}
			kind = r.Kind()
		}
		if err := table.Append(rc.RuleID, strconv.Itoa(rc.Count), fixable, kind); err != nil {
			return err
		}
	}
	return table.Render()
}

func paint(s lipgloss.Style, text string, style Style) string {
	if !style.Color {
		return text
	}
	return s.Render(text)
}
