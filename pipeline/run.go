// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kortschak/ptmremap/reference"
	"github.com/kortschak/ptmremap/table"
)

// OutputName is the name of the remapped table written to the
// output directory.
const OutputName = "remapped_peptides.txt"

// Job describes a complete remapping run.
type Job struct {
	// In is the path of the input table.
	In string
	// Out is the output directory. It is created if
	// it does not exist.
	Out string
	// GFF is the path of an optional GFF output file.
	GFF string

	Columns Columns
	Options Options
}

// Run reads the input table, remaps every row against sequences from p
// and writes the annotated table to OutputName in the output directory.
// Progress is logged to l if it is not nil. No output is written if
// sequence retrieval fails.
func Run(ctx context.Context, job Job, p reference.Provider, l *log.Logger) (Summary, error) {
	logf := func(format string, args ...interface{}) {
		if l != nil {
			l.Printf(format, args...)
		}
	}

	logf("reading input table %q", job.In)
	t, err := table.ReadFile(job.In)
	if err != nil {
		return Summary{}, err
	}

	logf("remapping %d rows", len(t.Rows))
	recs, err := Remap(ctx, t, job.Columns, p, job.Options)
	if err != nil {
		return Summary{}, err
	}
	Annotate(t, recs)
	sum := Summarize(recs)
	logf("remapped %v", sum)

	err = os.MkdirAll(job.Out, 0o755)
	if err != nil {
		return sum, fmt.Errorf("failed to create output directory: %w", err)
	}
	out := filepath.Join(job.Out, OutputName)
	logf("writing remapped table to %q", out)
	err = t.WriteFile(out)
	if err != nil {
		return sum, fmt.Errorf("failed to write output table: %w", err)
	}

	if job.GFF != "" {
		logf("writing remapped features to %q", job.GFF)
		f, err := os.Create(job.GFF)
		if err != nil {
			return sum, fmt.Errorf("failed to create GFF file: %w", err)
		}
		err = WriteGFF(f, recs)
		if err != nil {
			f.Close()
			return sum, fmt.Errorf("failed to write GFF: %w", err)
		}
		err = f.Close()
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}
