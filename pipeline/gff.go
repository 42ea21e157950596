// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"strconv"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
)

// GFF feature names and source.
const (
	Source         = "ptmremap"
	PeptideFeature = "peptide"
	SiteFeature    = "modified_residue"
)

// Features returns the GFF features describing r: the peptide match and
// the modified residue. Records that were not remapped have no features.
// Feature sequence names are canonical accession keys.
func (r Record) Features() []*gff.Feature {
	pos, ok := r.Result.Remapped()
	if !ok {
		return nil
	}
	attrs := gff.Attributes{
		{Tag: "Row", Value: strconv.Itoa(r.Row + 1)},
		{Tag: "Peptide", Value: r.Peptide},
		{Tag: "Length", Value: strconv.Itoa(r.Length)},
	}
	if c := r.Result.Comment(); c != "" {
		attrs = append(attrs, gff.Attribute{Tag: "Note", Value: strconv.Quote(c)})
	}

	f := make([]*gff.Feature, 0, 2)
	if r.Peptide != "" {
		f = append(f, &gff.Feature{
			SeqName:        r.Key,
			Source:         Source,
			Feature:        PeptideFeature,
			FeatStart:      r.Result.Start,
			FeatEnd:        r.Result.Start + len(r.Peptide),
			FeatStrand:     seq.None,
			FeatFrame:      gff.NoFrame,
			FeatAttributes: attrs,
		})
	}
	f = append(f, &gff.Feature{
		SeqName:        r.Key,
		Source:         Source,
		Feature:        SiteFeature,
		FeatStart:      pos - 1,
		FeatEnd:        pos,
		FeatStrand:     seq.None,
		FeatFrame:      gff.NoFrame,
		FeatAttributes: attrs,
	})
	return f
}

// WriteGFF writes the features of each remapped record in recs to w.
func WriteGFF(w io.Writer, recs []Record) error {
	gw := gff.NewWriter(w, 60, true)
	for _, r := range recs {
		for _, f := range r.Features() {
			_, err := gw.Write(f)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
