package util

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type TtyHistOpts struct {
	Name  string
	Scale string

	// N is the number of samples per report. The histogram is reset after
	// each report.
	N int64

	// Bins holding less than MinPct percent of the samples are not drawn.
	MinPct float64

	Min       int64
	Max       int64
	Precision int

	// Writer receives the reports. Nothing is reported if nil.
	Writer io.Writer
}

// TtyHist collects samples in an hdr histogram and draws a text report of
// their distribution every N samples.
type TtyHist struct {
	opts TtyHistOpts

	hdr  *hdrhistogram.Histogram
	tabw *tabwriter.Writer
	n    int
}

func NewTtyHist(opts TtyHistOpts) *TtyHist {
	if opts.N <= 0 {
		opts.N = 1024
	}
	if opts.Min <= 0 {
		opts.Min = 1
	}
	if opts.Max <= opts.Min {
		opts.Max = opts.Min * 1_000_000
	}
	if opts.Precision < 1 || opts.Precision > 5 {
		opts.Precision = 2
	}

	h := &TtyHist{
		opts: opts,
		hdr:  hdrhistogram.New(opts.Min, opts.Max, opts.Precision),
	}
	if opts.Writer != nil {
		h.tabw = tabwriter.NewWriter(opts.Writer, 2, 2, 2, byte(' '), 0)
	}
	return h
}

// Add records xs. Values out of [Min, Max] are clamped.
func (h *TtyHist) Add(xs ...int64) {
	for _, x := range xs {
		if x < h.opts.Min {
			x = h.opts.Min
		} else if x > h.opts.Max {
			x = h.opts.Max
		}
		_ = h.hdr.RecordValue(x)
	}
	if h.hdr.TotalCount() >= h.opts.N {
		h.Flush()
	}
}

// Flush reports the samples collected since the last report, if any, and
// resets the histogram.
func (h *TtyHist) Flush() {
	if h.hdr.TotalCount() == 0 {
		return
	}
	h.n++
	h.report()
	h.hdr.Reset()
}

// Reported is the number of reports drawn so far.
func (h *TtyHist) Reported() int {
	return h.n
}

// Count is the number of samples since the last report.
func (h *TtyHist) Count() int64 {
	return h.hdr.TotalCount()
}

func (h *TtyHist) Percentile(p float64) int64 {
	return h.hdr.ValueAtPercentile(p)
}

func (h *TtyHist) report() {
	w := h.opts.Writer
	if w == nil {
		return
	}

	total := h.hdr.TotalCount()

	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 46))
	fmt.Fprintf(w,
		"%v histogram report=%d name=%s samples=%d scale=%s\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		h.n, h.opts.Name, total, h.opts.Scale,
	)
	fmt.Fprintf(w,
		"summary min/avg/max/stddev = %d/%.3f/%d/%.3f %s\n",
		h.hdr.Min(), h.hdr.Mean(), h.hdr.Max(), h.hdr.StdDev(), h.opts.Scale)
	for _, p := range []float64{50, 75, 90, 95, 99, 99.9} {
		fmt.Fprintf(w, "%gth percentile=%d %s\n", p, h.hdr.ValueAtPercentile(p), h.opts.Scale)
	}

	var bins []hdrhistogram.Bar
	var lo, hi int64 = math.MaxInt64, math.MinInt64
	for _, bin := range h.hdr.Distribution() {
		if float64(bin.Count)*100.0/float64(total) < h.opts.MinPct {
			continue
		}
		bins = append(bins, bin)
		lo = min(lo, bin.Count)
		hi = max(hi, bin.Count)
	}

	for _, bin := range bins {
		bar := 1
		if hi > lo {
			bar = max(1, int(math.Ceil(float64(bin.Count-lo)/float64(hi-lo)*10)))
		}

		to := bin.To
		if bin.From == to {
			to++
		}

		fmt.Fprintf(h.tabw,
			"%d-%d %s\t%.3g%%\t%s\t%s\n",
			bin.From, to, h.opts.Scale,
			float64(bin.Count)*100.0/float64(total),
			strings.Repeat("|", bar),
			strconv.FormatInt(bin.Count, 10),
		)
	}

	_ = h.tabw.Flush()
}
