// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package uniprot provides batch retrieval of protein sequences, including
// isoforms, from the UniProt REST ID mapping service.
package uniprot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kortschak/ptmremap/reference"
)

const (
	// DefaultURL is the UniProt REST service root.
	DefaultURL = "https://rest.uniprot.org"

	// DefaultBatchSize is the number of accessions submitted
	// in each mapping job.
	DefaultBatchSize = 500

	// DefaultPollInterval is the delay between job status
	// queries.
	DefaultPollInterval = 3 * time.Second
)

var (
	ErrJobFailed     = errors.New("uniprot: mapping job failed")
	ErrMissingColumn = errors.New("uniprot: missing result column")
)

// Client is a UniProt ID mapping client. The zero value is not usable;
// use New or set BaseURL and BatchSize.
type Client struct {
	// BaseURL is the root of the REST service.
	BaseURL string

	// HTTP is the client used for requests. If nil,
	// http.DefaultClient is used.
	HTTP *http.Client

	// BatchSize is the maximum number of accessions
	// submitted in a single mapping job.
	BatchSize int

	// PollInterval is the delay between status queries
	// and the back-off unit for retries.
	PollInterval time.Duration

	// Retries is the number of times a request is
	// repeated after a transport error or a 429 or
	// 5xx response.
	Retries int
}

// New returns a Client with default parameters.
func New() *Client {
	return &Client{
		BaseURL:      DefaultURL,
		BatchSize:    DefaultBatchSize,
		PollInterval: DefaultPollInterval,
	}
}

// Entry is a single UniProtKB result.
type Entry struct {
	Accession string
	Sequence  string
}

// Sequences returns the sequences for the given accession keys, collapsed
// so that each accession holds the first sequence returned for it. Keys are
// submitted in batches of at most c.BatchSize.
func (c *Client) Sequences(ctx context.Context, keys []string) (reference.Set, error) {
	s := make(reference.Set)
	n := c.BatchSize
	if n < 1 {
		n = DefaultBatchSize
	}
	for i := 0; i < len(keys); i += n {
		entries, err := c.Fetch(ctx, keys[i:min(i+n, len(keys))])
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			s.Add(e.Accession, strings.ToUpper(e.Sequence))
		}
	}
	return s, nil
}

// Fetch runs a single mapping job for ids and returns the
// resulting entries in the order they are reported.
func (c *Client) Fetch(ctx context.Context, ids []string) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	job, err := c.submit(ctx, ids)
	if err != nil {
		return nil, err
	}
	err = c.wait(ctx, job)
	if err != nil {
		return nil, err
	}
	return c.results(ctx, job)
}

func (c *Client) submit(ctx context.Context, ids []string) (string, error) {
	form := url.Values{
		"from": {"UniProtKB_AC-ID"},
		"to":   {"UniProtKB"},
		"ids":  {strings.Join(ids, ",")},
	}
	var job struct {
		ID string `json:"jobId"`
	}
	err := c.getJSON(ctx, http.MethodPost, c.BaseURL+"/idmapping/run", form, &job)
	if err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("%w: no job identifier returned", ErrJobFailed)
	}
	return job.ID, nil
}

// wait polls the job status until the job is no longer queued or
// running. A finished job may be reported either by its status or by
// a redirect to its results, which carry no status.
func (c *Client) wait(ctx context.Context, job string) error {
	for {
		var status struct {
			Status   string   `json:"jobStatus"`
			Messages []string `json:"messages"`
		}
		err := c.getJSON(ctx, http.MethodGet, c.BaseURL+"/idmapping/status/"+url.PathEscape(job), nil, &status)
		if err != nil {
			return err
		}
		switch status.Status {
		case "NEW", "RUNNING":
		case "", "FINISHED":
			return nil
		default:
			return fmt.Errorf("%w: job %s: %s %s", ErrJobFailed, job, status.Status, strings.Join(status.Messages, "; "))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
}

func (c *Client) results(ctx context.Context, job string) ([]Entry, error) {
	q := url.Values{
		"format":         {"tsv"},
		"fields":         {"accession,sequence"},
		"includeIsoform": {"true"},
	}
	u := c.BaseURL + "/idmapping/uniprotkb/results/stream/" + url.PathEscape(job) + "?" + q.Encode()
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readEntries(resp.Body)
}

// readEntries parses a UniProt TSV result stream, returning the
// distinct (Entry, Sequence) pairs.
func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entryCol, seqCol := -1, -1
	for i, h := range header {
		switch h {
		case "Entry":
			entryCol = i
		case "Sequence":
			seqCol = i
		}
	}
	if entryCol < 0 || seqCol < 0 {
		return nil, fmt.Errorf("%w: header %q", ErrMissingColumn, header)
	}

	var entries []Entry
	seen := make(map[Entry]bool)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) <= max(entryCol, seqCol) {
			continue
		}
		e := Entry{Accession: rec[entryCol], Sequence: rec[seqCol]}
		if seen[e] {
			continue
		}
		seen[e] = true
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Client) getJSON(ctx context.Context, method, u string, form url.Values, dst interface{}) error {
	resp, err := c.do(ctx, method, u, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(dst)
	if err != nil {
		return fmt.Errorf("uniprot: failed to decode response from %s: %w", u, err)
	}
	return nil
}

// do performs the request, retrying transport errors and
// 429 and 5xx responses up to c.Retries times.
func (c *Client) do(ctx context.Context, method, u string, form url.Values) (*http.Response, error) {
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	for attempt := 0; ; attempt++ {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return nil, err
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := hc.Do(req)
		if err == nil {
			if resp.StatusCode < 300 {
				return resp, nil
			}
			resp.Body.Close()
			err = fmt.Errorf("uniprot: %s %s: %s", method, u, resp.Status)
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return nil, err
			}
		}
		if attempt >= c.Retries || ctx.Err() != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.PollInterval):
		}
	}
}
