// Command hummel is a five-minute bumblebee counting tool: a countdown
// timer, a species tally and stored counting sessions, following the
// survey method of counting along a fixed-pace walk.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/moritzmair/agroforst-methoden-apps/internal/config"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/distance"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/storage"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/survey"
)

const version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "hummel",
	Short:   "Hummelzählung - five-minute bumblebee counting walks",
	Version: version,
}

func init() {
	rootCmd.AddCommand(countCmd, sessionsCmd, exportCmd, speciesCmd)
}

// engine bundles what every subcommand needs: the configured survey and
// the database handle to close when done.
type engine struct {
	survey *survey.Survey
	db     *storage.SQLite
	cfg    *config.Config
}

func openEngine() (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", cfg.Storage.Path, err)
	}
	walk := distance.Config{
		Duration: time.Duration(cfg.Walk.DurationSeconds) * time.Second,
		Target:   cfg.Walk.TargetDistance,
	}
	s, err := survey.New(db, walk, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := seedExtraSpecies(s, cfg.Species.Extra); err != nil {
		db.Close()
		return nil, err
	}
	return &engine{survey: s, db: db, cfg: cfg}, nil
}

func (e *engine) Close() { e.db.Close() }

// seedExtraSpecies registers configured custom species that are not in
// the list yet.
func seedExtraSpecies(s *survey.Survey, extra []string) error {
	if len(extra) == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, sp := range s.Species() {
		known[sp.Name] = true
	}
	for _, name := range extra {
		if known[name] {
			continue
		}
		if _, _, err := s.AddSpecies(name); err != nil {
			return err
		}
	}
	return nil
}
