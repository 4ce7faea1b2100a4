// Package export writes stored counting sessions as CSV for analysis.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"sort"
	"strconv"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
)

// ErrNoSessions is returned when there is nothing to export.
var ErrNoSessions = errors.New("no stored sessions")

// placeholder row when no species was ever counted.
const noCounts = "Keine Zählung"

// WriteCSV writes the transposed survey sheet: one column per session,
// metadata rows first, then one row per species that was counted in any
// session. This is the layout the survey coordinators collect.
func WriteCSV(w io.Writer, sessions []model.Session) error {
	if len(sessions) == 0 {
		return ErrNoSessions
	}

	cw := csv.NewWriter(w)

	header := []string{"Art"}
	for i := range sessions {
		header = append(header, "Zaehlung_"+strconv.Itoa(i+1))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	metaRow(cw, sessions, "Zeitpunkt", func(s model.Session) string {
		return s.StartTime.Format("02.01.2006 15:04")
	})
	metaRow(cw, sessions, "Windstärke", func(s model.Session) string {
		return intOrBlank(s.Environmental.WindStrength)
	})
	metaRow(cw, sessions, "Temperatur (°C)", func(s model.Session) string {
		return strconv.FormatFloat(s.Environmental.Temperature, 'f', -1, 64)
	})
	metaRow(cw, sessions, "Wolkenbedeckung (0-8)", func(s model.Session) string {
		return intOrBlank(s.Environmental.CloudCover)
	})
	metaRow(cw, sessions, "Häufigste Blüte", func(s model.Session) string {
		return s.Environmental.FirstFlower
	})
	metaRow(cw, sessions, "2. häufigste Blüte", func(s model.Session) string {
		return s.Environmental.SecondFlower
	})
	metaRow(cw, sessions, "3. häufigste Blüte", func(s model.Session) string {
		return s.Environmental.ThirdFlower
	})
	metaRow(cw, sessions, "Bereich", func(s model.Session) string {
		return s.Environmental.AreaType
	})

	// Blank separator between metadata and counts.
	if err := cw.Write([]string{""}); err != nil {
		return err
	}

	for _, name := range countedSpecies(sessions) {
		row := []string{name}
		for _, s := range sessions {
			count := 0
			for _, sp := range s.Species {
				if sp.Name == name {
					count = sp.Count
					break
				}
			}
			row = append(row, strconv.Itoa(count))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func metaRow(cw *csv.Writer, sessions []model.Session, label string, value func(model.Session) string) {
	row := []string{label}
	for _, s := range sessions {
		row = append(row, value(s))
	}
	cw.Write(row)
}

func intOrBlank(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// countedSpecies returns the sorted names of every species with at least
// one count in any session.
func countedSpecies(sessions []model.Session) []string {
	seen := make(map[string]bool)
	for _, s := range sessions {
		for _, sp := range s.Species {
			if sp.Count > 0 {
				seen[sp.Name] = true
			}
		}
	}
	if len(seen) == 0 {
		return []string{noCounts}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
