// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// fetch-fasta writes the UniProtKB sequences of a list of protein
// identifiers to stdout in FASTA format. The resulting file can be used
// as the reference for ptmremap -fasta.
//
// Identifiers are read one per line from the file given by -in or from
// stdin. Blank lines and lines starting with '#' are ignored.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/ptmremap/accession"
	"github.com/kortschak/ptmremap/reference"
	"github.com/kortschak/ptmremap/uniprot"
)

var (
	in      = flag.String("in", "", "specify the identifier list file (default to stdin)")
	url     = flag.String("url", uniprot.DefaultURL, "specify the UniProt REST service URL")
	batch   = flag.Int("batch", uniprot.DefaultBatchSize, "specify the number of identifiers in each mapping job")
	poll    = flag.Duration("poll", uniprot.DefaultPollInterval, "specify the job status polling interval")
	retries = flag.Int("retries", 0, "specify the number of retries for failed requests")
	timeout = flag.Duration("timeout", 5*time.Minute, "specify the request timeout")
)

func main() {
	flag.Parse()

	r := os.Stdin
	if *in != "" {
		f, err := os.Open(*in)
		if err != nil {
			log.Fatalf("failed to open identifier file %q: %v", *in, err)
		}
		defer f.Close()
		r = f
	}
	keys, err := readKeys(r)
	if err != nil {
		log.Fatalf("failed to read identifiers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := uniprot.New()
	c.BaseURL = *url
	c.BatchSize = *batch
	c.PollInterval = *poll
	c.Retries = *retries
	c.HTTP = &http.Client{Timeout: *timeout}

	log.Printf("fetching %d sequences from %s", len(keys), *url)
	set, err := c.Sequences(ctx, keys)
	if err != nil {
		log.Fatalf("failed to fetch sequences: %v", err)
	}

	w := bufio.NewWriter(os.Stdout)
	missing, err := writeFASTA(w, keys, set)
	if err != nil {
		log.Fatalf("failed to write sequences: %v", err)
	}
	err = w.Flush()
	if err != nil {
		log.Fatalf("failed to write sequences: %v", err)
	}
	for _, k := range missing {
		log.Printf("no sequence for %q", k)
	}
}

// readKeys returns the distinct canonical accession keys of the
// identifiers in r in order of first appearance.
func readKeys(r io.Reader) ([]string, error) {
	var keys []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k := accession.Key(line)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys, sc.Err()
}

// writeFASTA writes the sequences in set for keys to w in key order,
// returning the keys without a sequence.
func writeFASTA(w io.Writer, keys []string, set reference.Set) (missing []string, err error) {
	for _, k := range keys {
		s, ok := set[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		_, err = fmt.Fprintf(w, "%60a\n", linear.NewSeq(k, alphabet.BytesToLetters([]byte(s)), alphabet.Protein))
		if err != nil {
			return missing, err
		}
	}
	return missing, nil
}
