package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored sessions as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var exportOut string

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to file instead of stdout (use 'auto' for a dated name)")
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	all, err := e.survey.Sessions().All()
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		name := exportOut
		if name == "auto" {
			name = fmt.Sprintf("hummelzaehlungen_alle_%s.csv", time.Now().Format("2006-01-02"))
		}
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		defer fmt.Fprintf(os.Stderr, "wrote %d sessions to %s\n", len(all), name)
	}

	return export.WriteCSV(out, all)
}
