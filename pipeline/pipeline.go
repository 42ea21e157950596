// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline joins tabular peptide site records to their reference
// protein sequences and annotates them with remapped protein positions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kortschak/ptmremap/accession"
	"github.com/kortschak/ptmremap/reference"
	"github.com/kortschak/ptmremap/remap"
	"github.com/kortschak/ptmremap/table"
)

// Output column names.
const (
	RemappedPositionColumn = "RemappedPosition"
	CommentColumn          = "Comment"
)

var ErrBadPosition = errors.New("pipeline: bad position")

// Columns names the input table columns used for remapping.
type Columns struct {
	Peptide   string
	Accession string
	Position  string
}

// Options controls remapping.
type Options struct {
	// Workers is the number of concurrent row workers.
	// Values less than two remap rows sequentially.
	Workers int

	// Strict is passed to the remap.Remapper.
	Strict bool
}

// Record is the remapping outcome for a single table row.
type Record struct {
	// Row is the index of the row in the table.
	Row int

	// Key is the canonical accession key of the row.
	Key string

	// Peptide is the upper case peptide sequence.
	Peptide string

	// Found indicates that a reference sequence was
	// found for Key.
	Found bool

	// Length is the length of the reference sequence
	// searched.
	Length int

	Result remap.Result
}

// index holds the resolved column indexes of a table.
type index struct {
	peptide, accession, position int
}

func (c Columns) resolve(t *table.Table) (index, error) {
	var (
		idx index
		err error
	)
	idx.peptide, err = t.Column(c.Peptide)
	if err != nil {
		return idx, err
	}
	idx.accession, err = t.Column(c.Accession)
	if err != nil {
		return idx, err
	}
	idx.position, err = t.Column(c.Position)
	return idx, err
}

// Keys returns the canonical accession keys for each row of t and the
// distinct keys in order of first appearance.
func Keys(t *table.Table, col int) (rows, distinct []string) {
	rows = make([]string, len(t.Rows))
	seen := make(map[string]bool)
	for i, r := range t.Rows {
		k := accession.Key(r[col])
		rows[i] = k
		if !seen[k] {
			seen[k] = true
			distinct = append(distinct, k)
		}
	}
	return rows, distinct
}

// Remap returns a Record for each row of t. Reference sequences are
// requested from p once for all distinct accession keys before any row
// is remapped. Rows without a position or without a reference sequence
// yield a remap.Skipped result.
func Remap(ctx context.Context, t *table.Table, cols Columns, p reference.Provider, opts Options) ([]Record, error) {
	idx, err := cols.resolve(t)
	if err != nil {
		return nil, err
	}

	// Parse positions first so that malformed input is
	// reported before any remote work is done.
	positions := make([]int, len(t.Rows))
	present := make([]bool, len(t.Rows))
	for i, r := range t.Rows {
		positions[i], present[i], err = ParsePosition(r[idx.position])
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", i+1, cols.Position, err)
		}
	}

	keys, distinct := Keys(t, idx.accession)
	seqs, err := p.Sequences(ctx, distinct)
	if err != nil {
		return nil, err
	}

	recs := make([]Record, len(t.Rows))
	rm := remap.Remapper{Strict: opts.Strict}
	work := func(i int) {
		r := t.Rows[i]
		ref, ok := seqs[keys[i]]
		recs[i] = Record{Row: i, Key: keys[i], Peptide: strings.ToUpper(r[idx.peptide])}
		if !ok {
			return
		}
		recs[i].Found = true
		recs[i].Length = searched(ref)
		if !present[i] {
			return
		}
		recs[i].Result = rm.Remap(r[idx.peptide], positions[i], ref)
	}

	if opts.Workers < 2 {
		for i := range recs {
			work(i)
		}
		return recs, nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range recs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			work(i)
			return nil
		})
	}
	return recs, g.Wait()
}

// searched returns the length of the portion of ref that is searched
// by remap.Remapper.
func searched(ref string) int {
	if i := strings.IndexByte(ref, ';'); i >= 0 {
		return i
	}
	return len(ref)
}

// ParsePosition parses a peptide-local position cell. Missing values
// are reported as not present. Integral floating point values such as
// "2.0" are accepted.
func ParsePosition(cell string) (pos int, ok bool, err error) {
	if table.IsNull(cell) {
		return 0, false, nil
	}
	cell = strings.TrimSpace(cell)
	pos, err = strconv.Atoi(cell)
	if err == nil {
		return pos, true, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false, fmt.Errorf("%w: %q", ErrBadPosition, cell)
	}
	return int(f), true, nil
}

// Annotate adds the remapping outcomes in recs to t. The remapped position
// and comment columns are only added when at least one record carries a
// value for them; when t already has a column of the same name it is reused
// and only cells with a value are written.
func Annotate(t *table.Table, recs []Record) {
	var hasPos, hasComment bool
	for _, r := range recs {
		_, ok := r.Result.Remapped()
		hasPos = hasPos || ok
		hasComment = hasComment || r.Result.Comment() != ""
	}
	if hasPos {
		col := t.AddColumn(RemappedPositionColumn)
		for _, r := range recs {
			if pos, ok := r.Result.Remapped(); ok {
				t.Rows[r.Row][col] = strconv.Itoa(pos)
			}
		}
	}
	if hasComment {
		col := t.AddColumn(CommentColumn)
		for _, r := range recs {
			if c := r.Result.Comment(); c != "" {
				t.Rows[r.Row][col] = c
			}
		}
	}
}

// Summary holds counts of remapping outcomes.
type Summary struct {
	Rows      int
	Keys      int
	Resolved  int
	Unmatched int
	Kinds     map[remap.Kind]int
}

// Summarize returns a summary of recs.
func Summarize(recs []Record) Summary {
	s := Summary{Rows: len(recs), Kinds: make(map[remap.Kind]int)}
	keys := make(map[string]bool)
	for _, r := range recs {
		if !keys[r.Key] {
			keys[r.Key] = true
			if r.Found {
				s.Resolved++
			}
		}
		if !r.Found {
			s.Unmatched++
		}
		s.Kinds[r.Result.Kind]++
	}
	s.Keys = len(keys)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d rows, %d/%d accessions resolved, %d rows without sequence: %d matched, %d matched with I/L folding, %d not found, %d invalid, %d skipped",
		s.Rows, s.Resolved, s.Keys, s.Unmatched,
		s.Kinds[remap.Matched], s.Kinds[remap.MatchedIL], s.Kinds[remap.NotFound], s.Kinds[remap.Invalid], s.Kinds[remap.Skipped],
	)
}
