package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moritzmair/agroforst-methoden-apps/internal/ui"
)

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "Manage the species list",
}

var speciesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the species list with current counts",
	Args:  cobra.NoArgs,
	RunE:  runSpeciesList,
}

var speciesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a custom species",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSpeciesAdd,
}

var speciesRemoveCmd = &cobra.Command{
	Use:   "remove <nr>",
	Short: "Remove a custom species (built-ins are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeciesRemove,
}

var speciesJSON bool

func init() {
	speciesCmd.AddCommand(speciesListCmd, speciesAddCmd, speciesRemoveCmd)
	speciesListCmd.Flags().BoolVar(&speciesJSON, "json", false, "Output as JSON")
}

func runSpeciesList(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	entries := e.survey.Species()
	if speciesJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	fmt.Print(ui.SpeciesTable(entries))
	return nil
}

func runSpeciesAdd(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	entry, ok, err := e.survey.AddSpecies(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("species name must not be empty")
	}
	fmt.Printf("added %d %s\n", entry.ID, entry.Name)
	return nil
}

func runSpeciesRemove(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("species number must be numeric, got %q", args[0])
	}
	entry, ok, err := e.survey.RemoveSpecies(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("species %d is built-in or unknown", id)
	}
	fmt.Printf("removed %d %s\n", entry.ID, entry.Name)
	return nil
}
