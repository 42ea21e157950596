// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remap places peptide-local PTM site positions onto full-length
// protein sequences.
//
// A peptide is located in its protein by exact substring search. When the
// exact search fails the search is repeated with isoleucine folded to
// leucine in both the peptide and the protein, since the two residues are
// isobaric and are routinely confused by mass spectrometry identification.
package remap

import (
	"fmt"
	"strings"
)

// Comments recorded against remapping outcomes that are not clean matches.
const (
	CommentIL       = "I replaced by L"
	CommentNotFound = "Peptide not found"
	CommentInvalid  = "Invalid position"
)

// Kind is the class of a remapping outcome.
type Kind int

const (
	// Skipped indicates that no local position or no
	// reference sequence was available.
	Skipped Kind = iota
	// Matched indicates an exact peptide match.
	Matched
	// MatchedIL indicates a match after I/L folding.
	MatchedIL
	// NotFound indicates that the peptide was not found
	// even after I/L folding.
	NotFound
	// Invalid indicates that the local position could not
	// be used to place a site.
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case Matched:
		return "matched"
	case MatchedIL:
		return "matched-il"
	case NotFound:
		return "not-found"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the outcome of remapping a single site. The zero Result
// is a Skipped outcome.
type Result struct {
	Kind Kind

	// Position is the 1-based position of the site in the
	// protein. It is only meaningful for Matched and MatchedIL.
	Position int

	// Start is the 0-based start of the peptide match in the
	// protein. It is only meaningful for Matched and MatchedIL.
	Start int
}

// Remapped returns the 1-based site position and whether the
// outcome carries one.
func (r Result) Remapped() (pos int, ok bool) {
	if r.Kind != Matched && r.Kind != MatchedIL {
		return 0, false
	}
	return r.Position, true
}

// Comment returns the annotation for the outcome, or the empty
// string for clean matches and skipped rows.
func (r Result) Comment() string {
	switch r.Kind {
	case MatchedIL:
		return CommentIL
	case NotFound:
		return CommentNotFound
	case Invalid:
		return CommentInvalid
	default:
		return ""
	}
}

// Remapper places peptide-local sites onto protein sequences.
type Remapper struct {
	// Strict rejects empty peptides and local positions beyond
	// the end of the peptide as Invalid. When false, these
	// follow plain substring search semantics; an empty
	// peptide matches at the start of the protein.
	Strict bool
}

// Remap returns the result of placing the residue at the 1-based local
// position within peptide onto ref. The peptide is compared case
// insensitively; ref is expected to be upper case. If ref holds a
// semicolon-separated list of alternative sequences, only the first is
// searched.
func (r Remapper) Remap(peptide string, local int, ref string) Result {
	if local < 1 {
		return Result{Kind: Invalid}
	}
	peptide = strings.ToUpper(peptide)
	if r.Strict && (peptide == "" || local > len(peptide)) {
		return Result{Kind: Invalid}
	}
	if i := strings.IndexByte(ref, ';'); i >= 0 {
		ref = ref[:i]
	}

	kind := Matched
	start := strings.Index(ref, peptide)
	if start < 0 {
		kind = MatchedIL
		start = strings.Index(Fold(ref), Fold(peptide))
		if start < 0 {
			return Result{Kind: NotFound}
		}
	}
	return Result{Kind: kind, Position: start + local, Start: start}
}

// Fold returns s with every isoleucine replaced by leucine.
func Fold(s string) string {
	return strings.ReplaceAll(s, "I", "L")
}
