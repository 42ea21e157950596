// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ptmremap places peptide-local post-translational modification site
// positions onto their full-length protein sequences.
//
// Each row of the input table names a peptide, the protein accession it
// was identified from and the 1-based position of a modified residue in
// the peptide. Protein sequences are taken from a local FASTA file or
// fetched from the UniProt REST service, and the table is written to
// remapped_peptides.txt in the output directory with RemappedPosition
// and Comment columns added.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kortschak/ptmremap/config"
	"github.com/kortschak/ptmremap/pipeline"
)

var settings string

// rootCmd is the ptmremap command.
var rootCmd = &cobra.Command{
	Use:   "ptmremap",
	Short: "Remap peptide PTM site positions onto protein sequences",
	Long: `Remap peptide-local PTM site positions onto full-length protein sequences.

Peptides are located in their protein by exact match, falling back to a
match with isoleucine and leucine treated as equal. Sequences are read from
the --fasta file or, if none is given, fetched from UniProt.

Options may also be given as PTMREMAP_ environment variables (for example
PTMREMAP_UNIPROT_BATCH_SIZE) or in a --config settings file.`,
	Example:       "  ptmremap -i peptides.tsv -p Peptide -u Protein -s Position -o results",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          remap,
}

func init() {
	rootCmd.Flags().StringVar(&settings, "config", "", "settings file (YAML, TOML or JSON)")
	config.AddFlags(rootCmd.Flags())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func remap(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags(), settings)
	if err != nil {
		return err
	}

	if cfg.Log != "" {
		w, err := os.Create(cfg.Log)
		if err != nil {
			// Oh, the irony.
			log.Fatalf("failed to create log file: %v", err)
		}
		defer w.Close()
		log.SetOutput(w)
	}

	if cfg.Fasta != "" {
		log.Printf("using reference sequences from %q", cfg.Fasta)
	} else {
		log.Printf("using reference sequences from %s", cfg.UniProt.URL)
	}
	_, err = pipeline.Run(cmd.Context(), cfg.Job(), cfg.Provider(), log.Default())
	if err != nil {
		log.Fatalf("failed to remap peptides: %v", err)
	}
	return nil
}
