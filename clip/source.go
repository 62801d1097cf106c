package clip

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brentp/clipsv/shared"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

const Suffix = ".clips.gz"

// Path returns the evidence file for chrom under dir.
func Path(dir, chrom string) string {
	return filepath.Join(dir, chrom+Suffix)
}

// DirSource reads the per-chromosome files written by Extract.
type DirSource struct {
	Dir string
	// Exclude chromosomes matching these names (see shared.Contains).
	Exclude []string
}

// Chromosomes lists the chromosomes that have an evidence file in Dir.
func (d DirSource) Chromosomes() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(d.Dir, "*"+Suffix))
	if err != nil {
		return nil, errors.Wrap(err, "clip: listing evidence files")
	}
	chroms := make([]string, 0, len(paths))
	for _, p := range paths {
		c := strings.TrimSuffix(filepath.Base(p), Suffix)
		if shared.Contains(d.Exclude, c) {
			continue
		}
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms, nil
}

// Load reads the evidence for chrom. A missing or malformed file is logged and
// treated as no evidence.
func (d DirSource) Load(chrom string) Rows {
	p := Path(d.Dir, chrom)
	if _, err := os.Stat(p); err != nil {
		shared.Slogger.Printf("no evidence file for %s at %s", chrom, p)
		return Rows{}
	}
	f, err := xopen.Ropen(p)
	if err != nil {
		shared.Slogger.Printf("could not open evidence for %s: %s", chrom, err)
		return Rows{}
	}
	defer f.Close()
	rows, err := ReadRows(f)
	if err != nil {
		shared.Slogger.Printf("ignoring malformed evidence for %s: %s", chrom, err)
		return Rows{}
	}
	return rows
}

// Stats is the library summary written by Extract.
type Stats struct {
	Sample        string
	TemplateMean  float64
	TemplateSD    float64
	MaxReadLength int
}

// ReadStats reads the summary written to StatsPath(dir).
func ReadStats(dir string) (Stats, error) {
	var s Stats
	f, err := xopen.Ropen(StatsPath(dir))
	if err != nil {
		return s, errors.Wrap(err, "clip: reading library stats")
	}
	defer f.Close()
	line, err := f.ReadString('\n')
	if err != nil && line == "" {
		return s, errors.Wrap(err, "clip: reading library stats")
	}
	_, err = fmt.Sscanf(strings.TrimSpace(line), "%s\t%f\t%f\t%d", &s.Sample, &s.TemplateMean, &s.TemplateSD, &s.MaxReadLength)
	return s, errors.Wrap(err, "clip: parsing library stats")
}
