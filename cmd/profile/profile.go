// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// profile renders a histogram of the positions of remapped modification
// sites relative to the length of their protein from a ptmremap GFF file.
// A relative position of 0 is the N-terminus and 1 the C-terminus.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"

	"github.com/kortschak/ptmremap/pipeline"
)

var (
	in   = flag.String("in", "", "specify the ptmremap gff file (required)")
	bins = flag.Int("bins", 20, "specify the number of histogram bins")
	out  = flag.String("out", "profile.svg", "specify the output file; the format is taken from the extension (eps, jpg, jpeg, pdf, png, svg or tiff)")
)

func main() {
	flag.Parse()
	if *in == "" || *bins < 1 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("failed to open %q: %v", *in, err)
	}
	v, err := relativePositions(f)
	f.Close()
	if err != nil {
		log.Fatalf("error during gff read: %v", err)
	}
	if len(v) == 0 {
		log.Fatalf("no %s features in %q", pipeline.SiteFeature, *in)
	}

	p, err := render(v, *bins, filepath.Base(*in))
	if err != nil {
		log.Fatalf("failed to render profile: %v", err)
	}
	err = p.Save(19*vg.Centimeter, 12*vg.Centimeter, *out)
	if err != nil {
		log.Fatalf("failed to save profile: %v", err)
	}
}

var errNoLength = errors.New("profile: missing protein length")

// relativePositions returns the 1-based position of each site feature
// in the GFF stream r divided by the length of its protein.
func relativePositions(r io.Reader) (plotter.Values, error) {
	var v plotter.Values
	sc := featio.NewScanner(gff.NewReader(r))
	for sc.Next() {
		f := sc.Feat().(*gff.Feature)
		if f.Feature != pipeline.SiteFeature {
			continue
		}
		n, err := strconv.Atoi(f.FeatAttributes.Get("Length"))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %s:%d", errNoLength, f.SeqName, f.FeatEnd)
		}
		v = append(v, float64(f.FeatEnd)/float64(n))
	}
	return v, sc.Error()
}

// render returns a histogram plot of v with the given number of bins.
func render(v plotter.Values, bins int, title string) (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return nil, err
	}
	p.Add(h)

	p.Title.Text = title
	p.X.Label.Text = "Relative site position"
	p.Y.Label.Text = "Sites"
	p.X.Min = 0
	p.X.Max = 1
	return p, nil
}
