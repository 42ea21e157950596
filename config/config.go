// Copyright ©2026 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds run settings for ptmremap. Settings are layered
// by viper from command line flags, PTMREMAP_ environment variables,
// an optional settings file and defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kortschak/ptmremap/pipeline"
	"github.com/kortschak/ptmremap/reference"
	"github.com/kortschak/ptmremap/uniprot"
)

var ErrMissingRequired = errors.New("config: missing required option")

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PTMREMAP"

// UniProt holds settings for the remote sequence service.
type UniProt struct {
	// base URL of the REST service
	URL string `mapstructure:"url"`

	// number of accessions submitted in each mapping job
	BatchSize int `mapstructure:"batch-size"`

	// interval between job status requests
	Poll time.Duration `mapstructure:"poll"`

	// time limit for each HTTP request
	Timeout time.Duration `mapstructure:"timeout"`

	// number of times a failed request is repeated
	Retries int `mapstructure:"retries"`
}

// Config is the complete run configuration.
type Config struct {
	// path to a local FASTA file; remote lookup is
	// used when empty
	Fasta string `mapstructure:"fasta"`

	// input table and output directory
	In  string `mapstructure:"in"`
	Out string `mapstructure:"out"`

	// input column names
	PeptideColumn   string `mapstructure:"peptide-column"`
	AccessionColumn string `mapstructure:"accession-column"`
	PositionColumn  string `mapstructure:"position-column"`

	// optional GFF output path
	GFF string `mapstructure:"gff"`

	Workers int  `mapstructure:"workers"`
	Strict  bool `mapstructure:"strict"`

	// optional log file path
	Log string `mapstructure:"log"`

	UniProt UniProt `mapstructure:"uniprot"`
}

// flag describes a command line flag and the configuration key it sets.
type flag struct {
	key, name, short string
	value            interface{}
	usage            string
}

var flags = []flag{
	{key: "fasta", name: "fasta", short: "f", value: "", usage: "reference protein FASTA file (sequences are fetched from UniProt if empty)"},
	{key: "in", name: "in", short: "i", value: "", usage: "input peptide table (.tsv, .txt or .csv) (required)"},
	{key: "peptide-column", name: "peptide-column", short: "p", value: "", usage: "name of the peptide sequence column (required)"},
	{key: "accession-column", name: "accession-column", short: "u", value: "", usage: "name of the protein accession column (required)"},
	{key: "position-column", name: "position-column", short: "s", value: "", usage: "name of the peptide site position column (required)"},
	{key: "out", name: "out", short: "o", value: "", usage: "output directory (required)"},
	{key: "gff", name: "gff", value: "", usage: "write remapped peptides and sites to this GFF file"},
	{key: "workers", name: "workers", short: "w", value: 1, usage: "number of concurrent remapping workers"},
	{key: "strict", name: "strict", value: false, usage: "mark empty peptides and positions beyond the peptide end as invalid"},
	{key: "log", name: "log", value: "", usage: "log file name (default to stderr)"},
	{key: "uniprot.url", name: "uniprot-url", value: uniprot.DefaultURL, usage: "UniProt REST service URL"},
	{key: "uniprot.batch-size", name: "batch-size", value: uniprot.DefaultBatchSize, usage: "number of accessions in each UniProt mapping job"},
	{key: "uniprot.poll", name: "poll", value: uniprot.DefaultPollInterval, usage: "UniProt job status polling interval"},
	{key: "uniprot.timeout", name: "timeout", value: 5 * time.Minute, usage: "UniProt request timeout"},
	{key: "uniprot.retries", name: "retries", value: 0, usage: "number of retries for failed UniProt requests"},
}

// AddFlags adds the configuration flags to fs.
func AddFlags(fs *pflag.FlagSet) {
	for _, f := range flags {
		switch v := f.value.(type) {
		case string:
			fs.StringP(f.name, f.short, v, f.usage)
		case int:
			fs.IntP(f.name, f.short, v, f.usage)
		case bool:
			fs.BoolP(f.name, f.short, v, f.usage)
		case time.Duration:
			fs.DurationP(f.name, f.short, v, f.usage)
		default:
			panic(fmt.Sprintf("config: unhandled flag type %T", v))
		}
	}
}

// Load returns the configuration described by the flags in fs, the
// environment and the settings file at path, if path is not empty.
// The flags in fs must have been added by AddFlags.
func Load(fs *pflag.FlagSet, path string) (Config, error) {
	v := viper.New()
	for _, f := range flags {
		v.SetDefault(f.key, f.value)
		if fs != nil {
			if pf := fs.Lookup(f.name); pf != nil {
				err := v.BindPFlag(f.key, pf)
				if err != nil {
					return Config{}, err
				}
			}
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil {
			return Config{}, fmt.Errorf("failed to read settings file: %w", err)
		}
	}

	var c Config
	err := v.Unmarshal(&c)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode settings: %w", err)
	}
	return c, c.Validate()
}

// Validate returns an error wrapping ErrMissingRequired if a required
// option is not set.
func (c Config) Validate() error {
	var missing []string
	for _, o := range []struct{ name, val string }{
		{"in", c.In},
		{"out", c.Out},
		{"peptide-column", c.PeptideColumn},
		{"accession-column", c.AccessionColumn},
		{"position-column", c.PositionColumn},
	} {
		if o.val == "" {
			missing = append(missing, o.name)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

// Job returns the pipeline job described by c.
func (c Config) Job() pipeline.Job {
	return pipeline.Job{
		In:  c.In,
		Out: c.Out,
		GFF: c.GFF,
		Columns: pipeline.Columns{
			Peptide:   c.PeptideColumn,
			Accession: c.AccessionColumn,
			Position:  c.PositionColumn,
		},
		Options: pipeline.Options{
			Workers: c.Workers,
			Strict:  c.Strict,
		},
	}
}

// Provider returns the reference sequence provider described by c: the
// FASTA file if one is given, otherwise the UniProt service.
func (c Config) Provider() reference.Provider {
	if c.Fasta != "" {
		return reference.File{Path: c.Fasta}
	}
	u := uniprot.New()
	if c.UniProt.URL != "" {
		u.BaseURL = c.UniProt.URL
	}
	if c.UniProt.BatchSize > 0 {
		u.BatchSize = c.UniProt.BatchSize
	}
	if c.UniProt.Poll > 0 {
		u.PollInterval = c.UniProt.Poll
	}
	u.Retries = c.UniProt.Retries
	u.HTTP = &http.Client{Timeout: c.UniProt.Timeout}
	return u
}
