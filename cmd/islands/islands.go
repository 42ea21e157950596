// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// islands groups the remapped peptides in a ptmremap GFF file into
// coverage islands: sets of peptides on the same protein that are
// connected by overlaps of at least a minimum number of residues.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/store/interval"

	"github.com/kortschak/ptmremap/pipeline"
)

var (
	in      = flag.String("in", "", "specify the ptmremap gff file (default to stdin)")
	overlap = flag.Int("overlap", 1, "specify the minimum overlap in residues between peptides of an island")
	gffOut  = flag.String("gff", "", "specify the gff output file for islands")
)

func main() {
	flag.Parse()
	if *overlap < 1 {
		flag.Usage()
		os.Exit(1)
	}

	r := os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			log.Fatalf("failed to open %q: %v", *in, err)
		}
		defer f.Close()
		r = f
	}
	v, err := readPeptides(r)
	if err != nil {
		log.Fatalf("error during gff read: %v", err)
	}

	isl := islands(v, *overlap)
	fmt.Printf("number of islands = %d, total number of peptides = %d\n", len(isl), len(v))
	if *gffOut != "" {
		gf, err := os.Create(*gffOut)
		if err != nil {
			log.Fatalf("failed to create gff file %q: %v", *gffOut, err)
		}
		w := gff.NewWriter(gf, 60, true)
		w.WriteComment(fmt.Sprintf("Minimum peptide overlap is %d residues.", *overlap))
		for _, f := range isl {
			_, err = w.Write(f)
			if err != nil {
				log.Fatalf("failed to write island: %v", err)
			}
		}
		err = gf.Close()
		if err != nil {
			log.Fatalf("failed to close gff file %q: %v", *gffOut, err)
		}
	}
}

// readPeptides returns the peptide features in the GFF stream r.
func readPeptides(r io.Reader) ([]*gff.Feature, error) {
	var v []*gff.Feature
	sc := featio.NewScanner(gff.NewReader(r))
	for sc.Next() {
		f := sc.Feat().(*gff.Feature)
		if f.Feature != pipeline.PeptideFeature {
			continue
		}
		v = append(v, f)
	}
	return v, sc.Error()
}

// islands returns a feature spanning each island of the peptides in v.
// Two peptides are in the same island if they are connected by a chain
// of peptides that each overlap by at least minOverlap residues. The
// score of an island feature is the number of peptides it holds. Islands
// are returned sorted by sequence name and position.
func islands(v []*gff.Feature, minOverlap int) []*gff.Feature {
	trees := make(map[string]*interval.IntTree)
	g := simple.NewUndirectedGraph()
	for i, f := range v {
		t, ok := trees[f.SeqName]
		if !ok {
			t = &interval.IntTree{}
			trees[f.SeqName] = t
		}
		t.Insert(gffInterval{id: uintptr(i), Feature: f}, true)
		g.AddNode(simple.Node(i))
	}
	for _, t := range trees {
		t.AdjustRanges()
	}

	for i, from := range v {
		for _, _to := range trees[from.SeqName].Get(gffInterval{Feature: from}) {
			to := _to.(gffInterval)
			if int(to.id) <= i {
				continue
			}
			if intersection(from, to.Feature) >= minOverlap {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(to.id)})
			}
		}
	}

	cc := topo.ConnectedComponents(g)
	isl := make([]*gff.Feature, 0, len(cc))
	for _, c := range cc {
		first := v[c[0].ID()]
		f := &gff.Feature{
			SeqName:    first.SeqName,
			Source:     "ptmremap/islands",
			Feature:    "island",
			FeatStart:  first.FeatStart,
			FeatEnd:    first.FeatEnd,
			FeatScore:  new(float64),
			FeatStrand: seq.None,
			FeatFrame:  gff.NoFrame,
		}
		for _, n := range c {
			p := v[n.ID()]
			if p.FeatStart < f.FeatStart {
				f.FeatStart = p.FeatStart
			}
			if p.FeatEnd > f.FeatEnd {
				f.FeatEnd = p.FeatEnd
			}
		}
		*f.FeatScore = float64(len(c))
		isl = append(isl, f)
	}
	sort.Slice(isl, func(i, j int) bool {
		a, b := isl[i], isl[j]
		if a.SeqName != b.SeqName {
			return a.SeqName < b.SeqName
		}
		if a.FeatStart != b.FeatStart {
			return a.FeatStart < b.FeatStart
		}
		return a.FeatEnd < b.FeatEnd
	})
	for i, f := range isl {
		f.FeatAttributes = gff.Attributes{{Tag: "Island", Value: strconv.Itoa(i)}}
	}
	return isl
}

type gffInterval struct {
	id uintptr
	*gff.Feature
}

func (i gffInterval) ID() uintptr { return i.id }
func (i gffInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.FeatStart, End: i.FeatEnd}
}
func (i gffInterval) Overlap(b interval.IntRange) bool {
	return i.FeatEnd > b.Start && i.FeatStart < b.End
}

func intersection(a, b *gff.Feature) int {
	if a.SeqName != b.SeqName {
		return 0
	}
	return max(0, min(a.FeatEnd, b.FeatEnd)-max(a.FeatStart, b.FeatStart))
}
