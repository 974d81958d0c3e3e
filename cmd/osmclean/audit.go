package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/osm-address-etl/internal/adapter/osmxml"
	"github.com/couchcryptid/osm-address-etl/internal/domain"
	"github.com/couchcryptid/osm-address-etl/internal/pipeline"
)

var auditJSON bool

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List street names whose suffix has no canonical form",
	Long: "Scans every addr:street value in the source document and prints the suffix tokens " +
		"that are not in the canonical vocabulary, each with the street names it appears in. " +
		"Nothing is written; use the report to extend the substitution tables before converting.",
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := loadMappings()
		if err != nil {
			return err
		}

		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		reader, err := osmxml.NewReader(src)
		if err != nil {
			return err
		}

		auditor := domain.NewAuditor(mappings)
		if err := pipeline.RunAudit(cmd.Context(), reader, auditor); err != nil {
			return err
		}
		logger.Info("audit finished", "street_names", auditor.Seen(), "tokens", len(auditor.Inventory()))

		if auditJSON {
			return writeAuditJSON(cmd.OutOrStdout(), auditor)
		}
		writeAuditReport(cmd.OutOrStdout(), auditor)
		return nil
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the inventory as JSON")
	rootCmd.AddCommand(auditCmd)
}

type auditReport struct {
	Seen         int                     `json:"street_names"`
	Suffixes     domain.AnomalyInventory `json:"suffixes"`
	Directionals domain.AnomalyInventory `json:"directionals"`
}

func writeAuditJSON(w io.Writer, a *domain.Auditor) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(auditReport{Seen: a.Seen(), Suffixes: a.Inventory(), Directionals: a.Directionals()})
}

// writeAuditReport prints each token once, followed by its street names in an
// aligned column.
func writeAuditReport(w io.Writer, a *domain.Auditor) {
	inv := a.Inventory()
	writeInventory(w, "suffix", inv)

	dirs := a.Directionals()
	if len(dirs) > 0 {
		fmt.Fprintln(w)
		writeInventory(w, "directional", dirs)
	}

	fmt.Fprintf(w, "\n%d street names audited, %d suffix tokens without a canonical form\n", a.Seen(), len(inv))
}

func writeInventory(w io.Writer, heading string, inv domain.AnomalyInventory) {
	tokens := inv.Tokens()
	width := runewidth.StringWidth(heading)
	for _, tok := range tokens {
		width = max(width, runewidth.StringWidth(tok))
	}

	fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(heading, width), "street names")
	for _, tok := range tokens {
		label := tok
		for _, name := range inv.Names(tok) {
			fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(label, width), name)
			label = ""
		}
	}
}
