// Package call runs breakpoint clustering on evidence written by `extract`
// and writes the events as VCF.
package call

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/brentp/clipsv/clip"
	"github.com/brentp/clipsv/config"
	"github.com/brentp/clipsv/discordant"
	"github.com/brentp/clipsv/engine"
	"github.com/brentp/clipsv/shared"
	"github.com/brentp/clipsv/vcfout"
	"github.com/brentp/faidx"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

type cliargs struct {
	Name          string `arg:"-n,required,help:project name used in output files."`
	Evidence      string `arg:"-d,required,help:directory of per-chromosome evidence from extract."`
	Reference     string `arg:"-r,required,help:reference (.2bit or fasta) for blat."`
	Fasta         string `arg:"-f,help:indexed fasta used to fill the REF column."`
	Discordant    string `arg:"-D,help:optional BEDPE of discordant read-pair clusters."`
	Settings      string `arg:"-s,help:optional YAML file of tuning settings."`
	ExcludeChroms string `arg:"-C,help:ignore these comma-delimited chroms. If this starts with ~ it is treated as a regular expression to exclude."`
	Unmapped      bool   `arg:"-u,help:use unmapped reads stored by extract to extend consensus sequences."`
	Processes     int    `arg:"-p,help:number of chromosomes to process in parallel."`
	OutDir        string `arg:"-o,help:output directory."`
}

func (cliargs) Description() string {
	return "cluster soft-clipped reads into structural variant calls"
}

func check(e error) {
	if e != nil {
		panic(e)
	}
}

// VCFPath is where the calls for name are written.
func VCFPath(outdir, name string) string {
	return filepath.Join(outdir, name+".clipsv.vcf.gz")
}

// LowConfidencePath is where unresolved breakpoints for name are written.
func LowConfidencePath(outdir, name string) string {
	return filepath.Join(outdir, name+".low-confidence.txt.gz")
}

func run(ctx context.Context, cli cliargs) error {
	t0 := time.Now()
	cfg, err := config.Load(cli.Settings)
	if err != nil {
		return err
	}
	if cli.Processes > 0 {
		cfg.Run.Processes = cli.Processes
	}
	stats, err := clip.ReadStats(cli.Evidence)
	if err != nil {
		shared.Slogger.Printf("no library stats in %s: %s", cli.Evidence, err)
	}

	opts := cfg.Options(stats, cli.Unmapped)
	if cli.Discordant != "" {
		clusters, err := discordant.Read(cli.Discordant)
		if err != nil {
			return err
		}
		if opts.Discordant, err = discordant.NewIndex(clusters); err != nil {
			return err
		}
		shared.Slogger.Printf("read %d discordant clusters from %s", len(clusters), cli.Discordant)
	}

	low, err := xopen.Wopen(LowConfidencePath(cli.OutDir, cli.Name))
	if err != nil {
		return errors.Wrap(err, "call: creating low confidence output")
	}
	defer low.Close()
	opts.LowConfidence = low

	src := clip.DirSource{Dir: cli.Evidence, Exclude: shared.SplitChroms(cli.ExcludeChroms)}
	events, err := engine.New(src, cfg.Aligner(cli.Reference), opts).Run(ctx)
	if err != nil {
		return err
	}

	var fa *faidx.Faidx
	if cli.Fasta != "" {
		if fa, err = faidx.New(cli.Fasta); err != nil {
			return errors.Wrapf(err, "call: opening %s", cli.Fasta)
		}
		defer fa.Close()
	}
	out, err := xopen.Wopen(VCFPath(cli.OutDir, cli.Name))
	if err != nil {
		return errors.Wrap(err, "call: creating vcf")
	}
	w, err := vcfout.NewWriter(out, fa, stats.Sample)
	if err != nil {
		out.Close()
		return err
	}
	if err := w.Write(events); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "call: closing vcf")
	}
	shared.Slogger.Printf("wrote %d events to %s in %.1f seconds", len(events), VCFPath(cli.OutDir, cli.Name), time.Since(t0).Seconds())
	return nil
}

// Main is the `call` sub-command.
func Main() {
	here, _ := filepath.Abs(".")
	cli := cliargs{OutDir: here, ExcludeChroms: "hs37d5,~:,~^GL,~decoy", Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	check(os.MkdirAll(cli.OutDir, 0755))
	if err := run(context.Background(), cli); err != nil {
		shared.Slogger.Fatal(err)
	}
}
