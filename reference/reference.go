// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package reference provides protein reference sequences keyed by
// canonical accession.
package reference

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/ptmremap/accession"
)

// Provider is a source of reference sequences.
type Provider interface {
	// Sequences returns sequences for the canonical accession
	// keys. The returned Set may hold keys that were not asked
	// for and may lack keys that could not be resolved.
	Sequences(ctx context.Context, keys []string) (Set, error)
}

// Set is a mapping from canonical accession key to upper case
// protein sequence.
type Set map[string]string

// Add adds the sequence for key unless key is already present
// or seq is empty. It reports whether the sequence was added.
func (s Set) Add(key, seq string) bool {
	if seq == "" {
		return false
	}
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = seq
	return true
}

// Sequences returns s, allowing a Set to be used as a Provider.
func (s Set) Sequences(_ context.Context, _ []string) (Set, error) {
	return s, nil
}

// File is a Provider reading a FASTA file. Files with a .gz
// suffix are decompressed.
type File struct {
	Path string
}

// Sequences returns all the sequences in the file.
func (f File) Sequences(ctx context.Context, _ []string) (Set, error) {
	r, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var in io.Reader = r
	if strings.HasSuffix(f.Path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %q: %w", f.Path, err)
		}
		defer gz.Close()
		in = gz
	}
	s, err := ReadFASTA(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Path, err)
	}
	return s, ctx.Err()
}

// ReadFASTA returns the sequences in r keyed by the canonical accession
// of their header line. When more than one record has the same key the
// first is retained. Records without sequence are dropped.
func ReadFASTA(r io.Reader) (Set, error) {
	s := make(Set)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein)))
	for sc.Next() {
		seq := sc.Seq().(*linear.Seq)
		label := seq.ID
		if seq.Desc != "" {
			label += " " + seq.Desc
		}
		s.Add(accession.Key(label), string(bytes.ToUpper(alphabet.LettersToBytes(seq.Seq))))
	}
	return s, sc.Error()
}
