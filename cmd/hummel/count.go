package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moritzmair/agroforst-methoden-apps/internal/ui"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/survey"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/timer"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Run a five-minute counting walk",
	Long: `Run a five-minute counting walk.

Starts the countdown and reads counting commands from stdin:

  <nr>        count one animal of species <nr>
  -<nr>       remove one count of species <nr>
  add <name>  add a custom species
  l           show the species list
  p           pause / resume the countdown
  s           save the walk and quit
  d           discard the walk and quit
  q           quit, keeping the walk resumable

An interrupted walk is offered for resume on the next start.`,
	Args: cobra.NoArgs,
	RunE: runCount,
}

var (
	countEdit    string
	countWind    int
	countTemp    float64
	countClouds  int
	countFlower1 string
	countFlower2 string
	countFlower3 string
	countArea    string
)

func init() {
	countCmd.Flags().StringVar(&countEdit, "edit", "", "Reopen a stored session for correction")
	countCmd.Flags().IntVar(&countWind, "wind", 0, "Wind strength (Beaufort)")
	countCmd.Flags().Float64Var(&countTemp, "temp", 0, "Temperature in °C")
	countCmd.Flags().IntVar(&countClouds, "clouds", 0, "Cloud cover in eighths (0-8)")
	countCmd.Flags().StringVar(&countFlower1, "flower1", "", "Most visited flower")
	countCmd.Flags().StringVar(&countFlower2, "flower2", "", "Second most visited flower")
	countCmd.Flags().StringVar(&countFlower3, "flower3", "", "Third most visited flower")
	countCmd.Flags().StringVar(&countArea, "area", "", "Area type of the transect")
}

func runCount(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()
	s := e.survey

	if countEdit != "" {
		sess, err := s.Edit(countEdit)
		if err != nil {
			return fmt.Errorf("edit %s: %w", countEdit, err)
		}
		fmt.Fprintf(os.Stderr, "editing %s (%s), changes apply immediately\n", sess.ID, sess.DisplayDate)
	} else if sess, ok, err := s.Recover(); err != nil {
		return err
	} else if ok {
		fmt.Fprintf(os.Stderr, "resuming interrupted walk from %s at %s, 'p' to continue\n",
			sess.DisplayDate, ui.FormatClock(int(sess.RemainingTime/1000)))
	} else {
		env, err := environmentalFromFlags(cmd, s)
		if err != nil {
			return err
		}
		if _, err := s.Begin(time.Now(), env); err != nil {
			return err
		}
	}

	events := make(chan survey.Event, 64)
	s.Subscribe(func(ev survey.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	// Handle ctrl-c gracefully: the walk stays resumable.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println(ui.SpeciesTable(s.Species()))
	status(s)

	for {
		select {
		case <-sig:
			fmt.Fprintln(os.Stderr, "\ninterrupted; run 'hummel count' to resume")
			return nil

		case ev := <-events:
			switch ev.Kind {
			case survey.EventError:
				fmt.Fprintf(os.Stderr, "\nhummel: %v\n", ev.Err)
			case survey.EventFinish:
				fmt.Printf("\r%s\n", ui.Clock(0, timer.StateFinished))
				fmt.Println("countdown finished; 's' to save the walk")
			default:
				status(s)
			}

		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(os.Stderr, "\nstdin closed; walk stays resumable")
				return nil
			}
			done, err := handleCommand(s, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "hummel: %v\n", err)
			}
			if done {
				return nil
			}
			status(s)
		}
	}
}

func status(s *survey.Survey) {
	fmt.Printf("\r%s  %s  %d Tiere   ",
		ui.Clock(s.TimeLeft(), s.State()), ui.ProgressBar(s.Progress(), 22), s.Total())
}

// handleCommand applies one stdin line. Returns done=true when the walk
// ended (saved, discarded, or quit).
func handleCommand(s *survey.Survey, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil

	case line == "p":
		s.Toggle()
		return false, nil

	case line == "l":
		fmt.Println("\n" + ui.SpeciesTable(s.Species()))
		return false, nil

	case line == "s":
		sess, err := s.Save()
		if err != nil {
			return false, err
		}
		fmt.Printf("\nsaved %s: %d Tiere auf %.1fm\n", sess.ID, sess.TotalCount, sess.FinalDistance)
		return true, nil

	case line == "d":
		if err := s.Discard(); err != nil {
			return false, err
		}
		fmt.Println("\ndiscarded")
		return true, nil

	case line == "q":
		s.Pause()
		fmt.Println("\nwalk stays resumable; run 'hummel count' to continue")
		return true, nil

	case strings.HasPrefix(line, "a ") || strings.HasPrefix(line, "add "):
		_, name, _ := strings.Cut(line, " ")
		name = strings.TrimSpace(name)
		entry, ok, err := s.AddSpecies(name)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("species name must not be empty")
		}
		fmt.Printf("\nadded %d %s\n", entry.ID, entry.Name)
		return false, nil

	default:
		n, err := strconv.Atoi(line)
		if err != nil {
			return false, fmt.Errorf("unknown command %q, try 'l', 'p', 's', 'd', 'q' or a species number", line)
		}
		if n < 0 {
			if _, err := s.Decrement(-n); err != nil {
				return false, err
			}
			return false, nil
		}
		count, err := s.Increment(n)
		if err != nil {
			return false, err
		}
		if count == 0 {
			if _, ok := speciesByID(s, n); !ok {
				return false, fmt.Errorf("no species %d, 'l' lists them", n)
			}
		}
		return false, nil
	}
}

func speciesByID(s *survey.Survey, id int) (model.SpeciesEntry, bool) {
	for _, sp := range s.Species() {
		if sp.ID == id {
			return sp, true
		}
	}
	return model.SpeciesEntry{}, false
}

// environmentalFromFlags builds the snapshot for a new walk. Values not
// given on the command line are prefilled from the previous session.
func environmentalFromFlags(cmd *cobra.Command, s *survey.Survey) (model.Environmental, error) {
	env, _, err := s.LastEnvironmental()
	if err != nil {
		return model.Environmental{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("wind") {
		env.WindStrength = countWind
	}
	if flags.Changed("temp") {
		env.Temperature = countTemp
	}
	if flags.Changed("clouds") {
		if countClouds < 0 || countClouds > 8 {
			return model.Environmental{}, fmt.Errorf("cloud cover is eighths, 0-8")
		}
		env.CloudCover = countClouds
	}
	if flags.Changed("flower1") {
		env.FirstFlower = countFlower1
	}
	if flags.Changed("flower2") {
		env.SecondFlower = countFlower2
	}
	if flags.Changed("flower3") {
		env.ThirdFlower = countFlower3
	}
	if flags.Changed("area") {
		env.AreaType = countArea
	}
	return env, nil
}
