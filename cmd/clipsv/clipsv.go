package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/brentp/clipsv"
	"github.com/brentp/clipsv/call"
	"github.com/brentp/clipsv/clip"
	"github.com/brentp/clipsv/shared"
	"github.com/valyala/fasttemplate"
)

type progPair struct {
	name string
	help string
	main func()
}

var progs = []progPair{
	{"extract", "write soft-clipped reads from tumour (and normal) bams to per-chromosome evidence files", clip.Main},
	{"call", "cluster soft-clip evidence into structural variant calls", call.Main},
}

func Description() string {
	tmpl := `clipsv version: {{version}}

clipsv calls several programs. Those with 'Y' are found on your $PATH. Only those with '*' are required.

 *[{{blat}}] blat [aligns consensus sequences of clipped reads]
  [{{samtools}}] samtools [only required for CRAM input]

Available sub-commands are below. Each can be run with -h for additional help.

`
	t := fasttemplate.New(tmpl, "{{", "}}")

	vars := map[string]interface{}{
		"version":  clipsv.Version,
		"blat":     shared.HasProg("blat"),
		"samtools": shared.HasProg("samtools"),
	}
	return t.ExecuteString(vars)
}

func printProgs() {

	var wtr io.Writer = os.Stdout

	fmt.Fprint(wtr, Description())
	l := 5
	for _, p := range progs {
		if len(p.name) > l {
			l = len(p.name)
		}
	}
	fmtr := "%-" + strconv.Itoa(l) + "s : %s\n"

	for _, p := range progs {
		fmt.Fprintf(wtr, fmtr, p.name, p.help)
	}
	os.Exit(1)

}

func get(name string) (*progPair, bool) {
	for _, p := range progs {
		if p.name == name {
			return &p, true
		}
	}
	return nil, false
}

func main() {

	if len(os.Args) < 2 {
		printProgs()
	}
	var p *progPair
	var ok bool
	if p, ok = get(os.Args[1]); !ok {
		printProgs()
	}
	// remove the prog name from the call
	os.Args = append(os.Args[:1], os.Args[2:]...)
	shared.Slogger.Printf("starting with version %s", clipsv.Version)
	(*p).main()
}
