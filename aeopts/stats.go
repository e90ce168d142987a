package aeopts

import "io"

type StatsConfig struct {
	Writer io.Writer

	// Samples is the number of callback durations collected per report.
	Samples int64
}

type optionStats struct {
	v StatsConfig
}

// Stats enables the callback latency histogram of a reactor. A report is
// written to w every samples callbacks.
func Stats(w io.Writer, samples int64) Option {
	return &optionStats{
		v: StatsConfig{Writer: w, Samples: samples},
	}
}

func (o *optionStats) Type() OptionType {
	return TypeStats
}

func (o *optionStats) Value() interface{} {
	return o.v
}
