package shared

import (
	"io"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/pkg/errors"
)

const Prefix = "[clipsv]"

type Logger struct {
	*log.Logger
}

func (l *Logger) Write(b []byte) (int, error) {
	l.Logger.Printf("%s", b)
	return len(b), nil
}

var Slogger *Logger

func init() {
	l := log.New(os.Stderr, Prefix+" ", log.Ldate|log.Ltime)
	Slogger = &Logger{Logger: l}
}

// Contains reports whether needle is in haystack. Entries starting with '~'
// are treated as regular expressions.
func Contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if len(h) == 0 {
			continue
		}
		if h[0] != '~' && h == needle {
			return true
		}
		if h[0] == '~' {
			if match, _ := regexp.MatchString(h[1:], needle); match {
				return true
			}
		}
	}
	return false
}

// HasProg returns "Y" if p is on the PATH.
func HasProg(p string) string {
	if _, err := exec.LookPath(p); err == nil {
		return "Y"
	}
	return " "
}

type reader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *reader) Close() error {
	if err := r.cmd.Wait(); err != nil {
		return errors.Wrap(err, "error closing cram reader")
	}
	return r.ReadCloser.Close()
}

// NewReader returns a bam.Reader from any path that samtools can read.
func NewReader(path string, rd int, fasta string) (*bam.Reader, error) {
	var rdr io.Reader
	if strings.HasSuffix(path, ".bam") {
		var err error
		rdr, err = os.Open(path)
		if err != nil {
			return nil, err
		}

	} else {
		cmd := exec.Command("samtools", "view", "-T", fasta, "-u", path)
		cmd.Stderr = Slogger
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, errors.Wrap(err, "error getting stdout for process")
		}
		if err = cmd.Start(); err != nil {
			pipe.Close()
			return nil, errors.Wrap(err, "error starting process")
		}
		rdr = &reader{ReadCloser: pipe, cmd: cmd}
	}
	return bam.NewReader(rdr, rd)
}

// SplitChroms splits a comma-delimited exclude list as accepted by Contains.
func SplitChroms(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
