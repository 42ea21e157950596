// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// subset-fasta keeps the protein sequences from a FASTA file on stdin
// whose accessions are referenced by a ptmremap input table. The output
// is a reduced reference for ptmremap -fasta.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/ptmremap/accession"
	"github.com/kortschak/ptmremap/pipeline"
	"github.com/kortschak/ptmremap/table"
)

var (
	in     = flag.String("in", "", "specify the input peptide table (required)")
	column = flag.String("accession-column", "", "specify the protein accession column (required)")
)

func main() {
	flag.Parse()
	if *in == "" || *column == "" {
		flag.Usage()
		os.Exit(1)
	}

	t, err := table.ReadFile(*in)
	if err != nil {
		log.Fatalf("failed to read table: %v", err)
	}
	col, err := t.Column(*column)
	if err != nil {
		log.Fatalf("failed to find accessions: %v", err)
	}
	_, keys := pipeline.Keys(t, col)
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}

	n, err := subset(os.Stdout, os.Stdin, keep)
	if err != nil {
		log.Fatalf("error during fasta read: %v", err)
	}
	log.Printf("kept %d sequences for %d accessions", n, len(keys))
}

// subset writes the sequences in r whose accession key is in keep to w
// and returns the number written.
func subset(w io.Writer, r io.Reader, keep map[string]bool) (int, error) {
	var n int
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		if !keep[accession.Key(s.ID+" "+s.Desc)] {
			continue
		}
		_, err := fmt.Fprintf(w, "%60a\n", s)
		if err != nil {
			return n, err
		}
		n++
	}
	return n, sc.Error()
}
