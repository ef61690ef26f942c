package render

import (
	"context"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
)

// LiveObserver prints one line per monitor tick, so a long-running monitor
// shows progress before the final series is rendered.
type LiveObserver struct {
	t    *textWriter
	seen int
}

func NewLiveObserver(w io.Writer, opts Options) *LiveObserver {
	return &LiveObserver{t: &textWriter{w: w, color: opts.Color}}
}

// ObserveSample is called from the monitor goroutine only.
func (o *LiveObserver) ObserveSample(_ context.Context, sample domain.AHISample, interval *domain.AHIInterval) {
	o.seen++
	at := sample.Timestamp.Format(time.TimeOnly)

	switch {
	case interval != nil:
		e := interval.Effectiveness
		o.t.printf("%s  ahi=%s btree=%s hit=%s %s\n",
			at,
			humanize.Comma(interval.Delta.Searches),
			humanize.Comma(interval.Delta.BtreeSearches),
			hitRate(e),
			o.t.tier(e.Tier, string(e.Tier)),
		)
	case o.seen == 1:
		o.t.printf("%s  baseline taken (ahi=%s btree=%s)\n",
			at, humanize.Comma(sample.Counters.Searches), humanize.Comma(sample.Counters.BtreeSearches))
	default:
		o.t.printf("%s  counters reset on the server; new baseline taken\n", at)
	}
}

// Err returns the first write error, if any.
func (o *LiveObserver) Err() error {
	return o.t.err
}
