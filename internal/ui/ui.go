// Package ui renders the counting walk for the terminal.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/distance"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/timer"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	clockStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	pausedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	finishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	barFillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	countStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
)

// FormatClock renders whole seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Clock renders the countdown with its state.
func Clock(timeLeft int, state timer.State) string {
	c := clockStyle.Render(FormatClock(timeLeft))
	switch state {
	case timer.StatePaused:
		return c + " " + pausedStyle.Render("(pausiert)")
	case timer.StateFinished:
		return c + " " + finishedStyle.Render("fertig!")
	case timer.StateStopped:
		return c + " " + mutedStyle.Render("(gestoppt)")
	}
	return c
}

// ProgressBar renders the walked distance as a fixed-width bar.
func ProgressBar(p distance.Progress, width int) string {
	if width < 4 {
		width = 4
	}
	inner := width - 2
	filled := int(float64(inner) * p.Percent / 100)
	if filled > inner {
		filled = inner
	}
	if filled < 0 {
		filled = 0
	}
	bar := barFillStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("░", inner-filled)
	return fmt.Sprintf("[%s] %.1fm (%.0f%%)", bar, p.Meters, p.Percent)
}

// SpeciesTable renders the tally, one row per species, total last.
func SpeciesTable(entries []model.SpeciesEntry) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Nr  Art                      Anzahl"))
	b.WriteByte('\n')
	for _, e := range entries {
		count := fmt.Sprintf("%6d", e.Count)
		if e.Count > 0 {
			count = countStyle.Render(count)
		}
		fmt.Fprintf(&b, "%-3d %-24s %s\n", e.ID, e.Name, count)
	}
	fmt.Fprintf(&b, "%s %6d\n", mutedStyle.Render("gesamt"+strings.Repeat(" ", 22)), model.TotalCount(entries))
	return b.String()
}

// SessionLine renders one row of the session list. Cut-short walks show
// how much counting time was left.
func SessionLine(s model.Session) string {
	mark := finishedStyle.Render("vollständig")
	if !s.IsComplete {
		mark = mutedStyle.Render(fmt.Sprintf("vorzeitig beendet (%s übrig)",
			FormatClock(int(s.RemainingTime/1000))))
	}
	return fmt.Sprintf("%-24s %s  %3d Tiere  %5.1fm  %s",
		s.ID, s.DisplayDate, s.TotalCount, s.FinalDistance, mark)
}

// SessionDetail renders a full stored session.
func SessionDetail(s model.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(s.DisplayDate))
	fmt.Fprintf(&b, "Zählzeit:  %s von %s\n",
		FormatClock(int(s.ElapsedTime/1000)), FormatClock(int((s.ElapsedTime+s.RemainingTime)/1000)))
	fmt.Fprintf(&b, "Strecke:   %.1fm\n", s.FinalDistance)
	fmt.Fprintf(&b, "Wetter:    Wind %d, %.1f°C, Bewölkung %d/8\n",
		s.Environmental.WindStrength, s.Environmental.Temperature, s.Environmental.CloudCover)
	if s.Environmental.AreaType != "" {
		fmt.Fprintf(&b, "Fläche:    %s\n", s.Environmental.AreaType)
	}
	if s.Environmental.FirstFlower != "" {
		fmt.Fprintf(&b, "Blüten:    %s", s.Environmental.FirstFlower)
		if s.Environmental.SecondFlower != "" {
			fmt.Fprintf(&b, ", %s", s.Environmental.SecondFlower)
		}
		if s.Environmental.ThirdFlower != "" {
			fmt.Fprintf(&b, ", %s", s.Environmental.ThirdFlower)
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	// Counted species first, most seen on top; the uncounted rest below.
	counted := make([]model.SpeciesEntry, 0, len(s.Species))
	var empty []model.SpeciesEntry
	for _, sp := range s.Species {
		if sp.Count > 0 {
			counted = append(counted, sp)
		} else {
			empty = append(empty, sp)
		}
	}
	sort.SliceStable(counted, func(i, j int) bool { return counted[i].Count > counted[j].Count })

	if len(counted) == 0 {
		b.WriteString(mutedStyle.Render("Keine Tiere gezählt.") + "\n")
	}
	for _, sp := range counted {
		fmt.Fprintf(&b, "  %-24s %d\n", sp.Name, sp.Count)
	}
	fmt.Fprintf(&b, "  %-24s %d\n", "gesamt", s.TotalCount)
	if len(empty) > 0 {
		b.WriteString("\n" + mutedStyle.Render("Nicht gezählte Arten:") + "\n")
		for _, sp := range empty {
			fmt.Fprintf(&b, "  %s\n", sp.Name)
		}
	}
	return b.String()
}
