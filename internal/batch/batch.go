// Package batch qualifies a newline-delimited file of addresses and prints
// one report block per address.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Separator ends every report block.
var Separator = strings.Repeat("-", 40)

// Lookuper resolves one address.
type Lookuper interface {
	LookupOrFetch(ctx context.Context, addr model.Address) (*model.Lookup, error)
}

// Summary counts what a run did.
type Summary struct {
	RunID     string
	Read      int
	Processed int
	Failed    int
	Skipped   int
}

// Runner processes addresses sequentially, up to a fixed limit per run.
type Runner struct {
	lookups Lookuper
	limit   int
	out     io.Writer
}

// New creates a Runner that writes reports to out. A limit below one is
// treated as one.
func New(l Lookuper, limit int, out io.Writer) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{lookups: l, limit: limit, out: out}
}

// RunFile processes the addresses in the file at path.
func (r *Runner) RunFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close()
	return r.Run(ctx, f)
}

// Run reads one address per line, skipping blank lines, and processes the
// first limit of them. A line that fails to parse or look up is reported
// and the run continues. Only cancellation of ctx stops a run early.
func (r *Runner) Run(ctx context.Context, in io.Reader) (*Summary, error) {
	lines, err := readLines(in)
	if err != nil {
		return nil, err
	}

	sum := &Summary{RunID: uuid.NewString(), Read: len(lines)}
	log := zap.L().With(zap.String("run_id", sum.RunID))

	if len(lines) > r.limit {
		sum.Skipped = len(lines) - r.limit
		lines = lines[:r.limit]
		log.Info("batch: search limit applied", zap.Int("limit", r.limit), zap.Int("skipped", sum.Skipped))
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "batch: run cancelled")
		}

		addr, err := model.ParseAddress(line)
		if err != nil {
			log.Warn("batch: unparseable address", zap.String("line", line), zap.Error(err))
			r.printError(line, err)
			sum.Failed++
			continue
		}

		l, err := r.lookups.LookupOrFetch(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return sum, eris.Wrap(err, "batch: run cancelled")
			}
			log.Error("batch: lookup failed", zap.String("address", line), zap.Error(err))
			r.printError(line, err)
			sum.Failed++
			continue
		}

		r.printLookup(line, l)
		sum.Processed++
	}

	log.Info("batch: run complete",
		zap.Int("read", sum.Read),
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func readLines(in io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	return lines, nil
}

func (r *Runner) printLookup(line string, l *model.Lookup) {
	lat, lon := "N/A", "N/A"
	if !l.Outcome.Failed() {
		if l.Outcome.Record.Lat != nil {
			lat = strconv.FormatFloat(*l.Outcome.Record.Lat, 'f', -1, 64)
		}
		if l.Outcome.Record.Lon != nil {
			lon = strconv.FormatFloat(*l.Outcome.Record.Lon, 'f', -1, 64)
		}
	}
	fmt.Fprintf(r.out, "Address: %s\n", line)
	fmt.Fprintf(r.out, "Location: Lat: %s, Lon: %s\n", lat, lon)
	fmt.Fprintf(r.out, "Source: %s\n", l.Source)
	fmt.Fprintf(r.out, "Score: %.2f, Confidence: %.1f%%\n", l.Score, l.Confidence)
	fmt.Fprintln(r.out, Separator)
}

func (r *Runner) printError(line string, err error) {
	fmt.Fprintf(r.out, "Address: %s\n", line)
	fmt.Fprintf(r.out, "Error: %s\n", err.Error())
	fmt.Fprintln(r.out, Separator)
}
