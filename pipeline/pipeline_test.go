// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/google/go-cmp/cmp"

	"github.com/kortschak/ptmremap/reference"
	"github.com/kortschak/ptmremap/remap"
	"github.com/kortschak/ptmremap/table"
)

var refs = reference.Set{
	"P00001":   "AAAPEPTIDEAAA",
	"P00002":   "AAALEPTIDEAAA",
	"P00003":   "AAAB;CCCD",
	"P00001-2": "MKSAMPLEKR",
}

var cols = Columns{Peptide: "Peptide", Accession: "Protein", Position: "Pos"}

func input() *table.Table {
	return &table.Table{
		Header: []string{"Peptide", "Protein", "Pos"},
		Rows: [][]string{
			{"PEPTIDE", "P00001", "2"},                 // exact
			{"IEPTIDE", "sp|P00002|TEST_HUMAN", "1"},   // I/L fallback
			{"WWWW", "P00001", "1"},                    // not found
			{"PEPTIDE", "P00001", ""},                  // no position
			{"PEPTIDE", "P09999", "2"},                 // no sequence
			{"CCC", "P00003", "1"},                     // first alternative only
			{"sampleK", "P00001-2", "4.0"},             // lower case, isoform, float position
			{"PEPTIDE", "sp|P00001|TEST_HUMAN", "NaN"}, // null position token
			{"PEPTIDE", "P00001", "0"},                 // invalid position
		},
	}
}

// recorder is a Provider that records the keys it is asked for.
type recorder struct {
	reference.Set
	keys [][]string
}

func (r *recorder) Sequences(ctx context.Context, keys []string) (reference.Set, error) {
	r.keys = append(r.keys, keys)
	return r.Set, nil
}

func TestRemap(t *testing.T) {
	for _, workers := range []int{0, 1, 4} {
		p := &recorder{Set: refs}
		tab := input()
		recs, err := Remap(context.Background(), tab, cols, p, Options{Workers: workers})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantKeys := [][]string{{"P00001", "P00002", "P09999", "P00003", "P00001-2"}}
		if diff := cmp.Diff(wantKeys, p.keys); diff != "" {
			t.Errorf("unexpected provider requests with %d workers (-want +got):\n%s", workers, diff)
		}

		want := []Record{
			{Row: 0, Key: "P00001", Peptide: "PEPTIDE", Found: true, Length: 13, Result: remap.Result{Kind: remap.Matched, Position: 5, Start: 3}},
			{Row: 1, Key: "P00002", Peptide: "IEPTIDE", Found: true, Length: 13, Result: remap.Result{Kind: remap.MatchedIL, Position: 4, Start: 3}},
			{Row: 2, Key: "P00001", Peptide: "WWWW", Found: true, Length: 13, Result: remap.Result{Kind: remap.NotFound}},
			{Row: 3, Key: "P00001", Peptide: "PEPTIDE", Found: true, Length: 13},
			{Row: 4, Key: "P09999", Peptide: "PEPTIDE"},
			{Row: 5, Key: "P00003", Peptide: "CCC", Found: true, Length: 4, Result: remap.Result{Kind: remap.NotFound}},
			{Row: 6, Key: "P00001-2", Peptide: "SAMPLEK", Found: true, Length: 10, Result: remap.Result{Kind: remap.Matched, Position: 6, Start: 2}},
			{Row: 7, Key: "P00001", Peptide: "PEPTIDE", Found: true, Length: 13},
			{Row: 8, Key: "P00001", Peptide: "PEPTIDE", Found: true, Length: 13, Result: remap.Result{Kind: remap.Invalid}},
		}
		if diff := cmp.Diff(want, recs); diff != "" {
			t.Errorf("unexpected records with %d workers (-want +got):\n%s", workers, diff)
		}
	}
}

func TestAnnotate(t *testing.T) {
	tab := input()
	recs, err := Remap(context.Background(), tab, cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Annotate(tab, recs)

	want := &table.Table{
		Header: []string{"Peptide", "Protein", "Pos", RemappedPositionColumn, CommentColumn},
		Rows: [][]string{
			{"PEPTIDE", "P00001", "2", "5", ""},
			{"IEPTIDE", "sp|P00002|TEST_HUMAN", "1", "4", remap.CommentIL},
			{"WWWW", "P00001", "1", "", remap.CommentNotFound},
			{"PEPTIDE", "P00001", "", "", ""},
			{"PEPTIDE", "P09999", "2", "", ""},
			{"CCC", "P00003", "1", "", remap.CommentNotFound},
			{"sampleK", "P00001-2", "4.0", "6", ""},
			{"PEPTIDE", "sp|P00001|TEST_HUMAN", "NaN", "", ""},
			{"PEPTIDE", "P00001", "0", "", remap.CommentInvalid},
		},
	}
	if diff := cmp.Diff(want, tab); diff != "" {
		t.Errorf("unexpected annotated table (-want +got):\n%s", diff)
	}
	if len(tab.Rows) != len(input().Rows) {
		t.Errorf("row count changed: got:%d want:%d", len(tab.Rows), len(input().Rows))
	}
}

func TestAnnotateColumnsOnDemand(t *testing.T) {
	tab := &table.Table{
		Header: []string{"Peptide", "Protein", "Pos"},
		Rows: [][]string{
			{"PEPTIDE", "P00001", "2"},
			{"PEPTIDE", "P09999", "2"},
		},
	}
	recs, err := Remap(context.Background(), tab, cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Annotate(tab, recs)
	wantHeader := []string{"Peptide", "Protein", "Pos", RemappedPositionColumn}
	if diff := cmp.Diff(wantHeader, tab.Header); diff != "" {
		t.Errorf("unexpected header (-want +got):\n%s", diff)
	}
}

func TestAnnotateIdempotent(t *testing.T) {
	tab := input()
	recs, err := Remap(context.Background(), tab, cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Annotate(tab, recs)
	once := &table.Table{Header: append([]string(nil), tab.Header...)}
	for _, r := range tab.Rows {
		once.Rows = append(once.Rows, append([]string(nil), r...))
	}

	recs, err = Remap(context.Background(), tab, cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Annotate(tab, recs)
	if diff := cmp.Diff(once, tab); diff != "" {
		t.Errorf("second annotation changed table (-want +got):\n%s", diff)
	}
}

func TestRemapErrors(t *testing.T) {
	tab := input()
	_, err := Remap(context.Background(), tab, Columns{Peptide: "Peptide", Accession: "Accession", Position: "Pos"}, refs, Options{})
	if !errors.Is(err, table.ErrNoColumn) {
		t.Errorf("unexpected error for missing column: %v", err)
	}

	tab.Rows[2][2] = "two"
	p := &recorder{Set: refs}
	_, err = Remap(context.Background(), tab, cols, p, Options{})
	if !errors.Is(err, ErrBadPosition) {
		t.Errorf("unexpected error for bad position: %v", err)
	}
	if len(p.keys) != 0 {
		t.Error("provider called despite malformed input")
	}

	failing := failProvider{errors.New("service unavailable")}
	_, err = Remap(context.Background(), input(), cols, failing, Options{})
	if err == nil || err.Error() != "service unavailable" {
		t.Errorf("provider error not propagated: %v", err)
	}
}

type failProvider struct{ err error }

func (p failProvider) Sequences(context.Context, []string) (reference.Set, error) {
	return nil, p.err
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		cell    string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{cell: "2", want: 2, wantOK: true},
		{cell: " 12 ", want: 12, wantOK: true},
		{cell: "3.0", want: 3, wantOK: true},
		{cell: "-1", want: -1, wantOK: true},
		{cell: ""},
		{cell: "NA"},
		{cell: "nan"},
		{cell: "2.5", wantErr: true},
		{cell: "two", wantErr: true},
		{cell: "inf", wantErr: true},
	}
	for _, test := range tests {
		got, ok, err := ParsePosition(test.cell)
		if (err != nil) != test.wantErr {
			t.Errorf("unexpected error for %q: %v", test.cell, err)
			continue
		}
		if got != test.want || ok != test.wantOK {
			t.Errorf("unexpected position for %q: got:%d,%t want:%d,%t", test.cell, got, ok, test.want, test.wantOK)
		}
	}
}

func TestSummarize(t *testing.T) {
	recs, err := Remap(context.Background(), input(), cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Summarize(recs)
	want := Summary{
		Rows:      9,
		Keys:      5,
		Resolved:  4,
		Unmatched: 1,
		Kinds: map[remap.Kind]int{
			remap.Matched:   2,
			remap.MatchedIL: 1,
			remap.NotFound:  2,
			remap.Skipped:   3,
			remap.Invalid:   1,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected summary (-want +got):\n%s", diff)
	}
}

func TestWriteGFF(t *testing.T) {
	recs, err := Remap(context.Background(), input(), cols, refs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	err = WriteGFF(&buf, recs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	type feature struct {
		seq, typ   string
		start, end int
		peptide    string
	}
	var got []feature
	sc := featio.NewScanner(gff.NewReader(&buf))
	for sc.Next() {
		f := sc.Feat().(*gff.Feature)
		got = append(got, feature{
			seq: f.SeqName, typ: f.Feature,
			start: f.FeatStart, end: f.FeatEnd,
			peptide: f.FeatAttributes.Get("Peptide"),
		})
	}
	if err := sc.Error(); err != nil {
		t.Fatalf("unexpected error reading GFF: %v", err)
	}
	want := []feature{
		{seq: "P00001", typ: PeptideFeature, start: 3, end: 10, peptide: "PEPTIDE"},
		{seq: "P00001", typ: SiteFeature, start: 4, end: 5, peptide: "PEPTIDE"},
		{seq: "P00002", typ: PeptideFeature, start: 3, end: 10, peptide: "IEPTIDE"},
		{seq: "P00002", typ: SiteFeature, start: 3, end: 4, peptide: "IEPTIDE"},
		{seq: "P00001-2", typ: PeptideFeature, start: 2, end: 9, peptide: "SAMPLEK"},
		{seq: "P00001-2", typ: SiteFeature, start: 5, end: 6, peptide: "SAMPLEK"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(feature{})); diff != "" {
		t.Errorf("unexpected features (-want +got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "peptides.csv")
	err := os.WriteFile(in, []byte("Peptide,Protein,Pos\nPEPTIDE,P00001,2\nIEPTIDE,P00002,1\nPEPTIDE,P09999,2\n"), 0o644)
	if err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	out := filepath.Join(dir, "results", "nested")
	job := Job{
		In:      in,
		Out:     out,
		GFF:     filepath.Join(dir, "sites.gff"),
		Columns: cols,
	}
	sum, err := Run(context.Background(), job, refs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Rows != 3 {
		t.Errorf("unexpected row count: %d", sum.Rows)
	}

	got, err := os.ReadFile(filepath.Join(out, OutputName))
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	want := "Peptide\tProtein\tPos\tRemappedPosition\tComment\n" +
		"PEPTIDE\tP00001\t2\t5\t\n" +
		"IEPTIDE\tP00002\t1\t4\tI replaced by L\n" +
		"PEPTIDE\tP09999\t2\t\t\n"
	if string(got) != want {
		t.Errorf("unexpected output:\ngot:\n%s\nwant:\n%s", got, want)
	}

	g, err := os.ReadFile(job.GFF)
	if err != nil {
		t.Fatalf("failed to read GFF: %v", err)
	}
	if n := strings.Count(string(g), SiteFeature); n != 2 {
		t.Errorf("unexpected number of site features: %d", n)
	}
}

func TestRunUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	p := &recorder{Set: refs}
	_, err := Run(context.Background(), Job{In: filepath.Join(dir, "peptides.xlsx"), Out: dir, Columns: cols}, p, nil)
	if !errors.Is(err, table.ErrUnsupportedFormat) {
		t.Errorf("unexpected error: %v", err)
	}
	if len(p.keys) != 0 {
		t.Error("provider called for unsupported input")
	}
	if _, err := os.Stat(filepath.Join(dir, OutputName)); !os.IsNotExist(err) {
		t.Error("output written for unsupported input")
	}
}
