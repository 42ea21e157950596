// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package accession extracts canonical UniProt accession keys from free-form
// protein identifiers.
//
// Identifiers may be bare accessions ("P12345"), isoform accessions
// ("P12345-2") or composite database identifiers as found in UniProt FASTA
// headers ("sp|P12345-2|GENE_HUMAN Description OS=...").
package accession

import (
	"regexp"
	"strings"
)

// pattern is the UniProt accession grammar with an optional isoform suffix.
var pattern = regexp.MustCompile(`([OPQ][0-9][A-Z0-9]{3}[0-9]|[A-NR-Z][0-9](?:[A-Z][A-Z0-9]{2}[0-9]){1,2})(-[0-9]+)?`)

// Accession is a parsed UniProt accession.
type Accession struct {
	// Base is the accession without isoform suffix.
	Base string
	// Isoform is the isoform suffix including its leading
	// hyphen, or the empty string for canonical entries.
	Isoform string
}

// Key returns the canonical join key for a.
func (a Accession) Key() string { return a.Base + a.Isoform }

func (a Accession) String() string { return a.Key() }

// Parse returns the first accession found in raw. For composite
// db|accession|name identifiers the accession field is examined
// before the complete string so that entry names cannot shadow it.
func Parse(raw string) (Accession, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), ">")
	if fields := strings.SplitN(raw, "|", 3); len(fields) == 3 {
		if a, ok := find(fields[1]); ok {
			return a, true
		}
	}
	return find(raw)
}

func find(s string) (Accession, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Accession{}, false
	}
	return Accession{Base: m[1], Isoform: m[2]}, true
}

// Key returns the canonical key for raw. If no accession can be
// recognised, raw is returned unaltered.
func Key(raw string) string {
	a, ok := Parse(raw)
	if !ok {
		return raw
	}
	return a.Key()
}
