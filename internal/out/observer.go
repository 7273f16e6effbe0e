package out

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"firesim/internal/core"
	"firesim/internal/sim"
)

// ArrivalObserver records when fire first reached each cell during a single
// scenario run and writes an arrival-time grid at each snapshot. It is meant
// for deterministic runs; attach it through the model's observer factory.
type ArrivalObserver struct {
	writer  *Writer
	id      int
	size    core.Size
	arrival []float64
}

// NewArrivalObserver builds an observer writing into the given writer's
// directory, tagged with the scenario's stream id.
func NewArrivalObserver(w *Writer, id int, size core.Size) *ArrivalObserver {
	return &ArrivalObserver{
		writer:  w,
		id:      id,
		size:    size,
		arrival: make([]float64, size.Cells()),
	}
}

// CellBurned records the first arrival time for the event's cell.
func (a *ArrivalObserver) CellBurned(e sim.Event) {
	if !e.HasCell {
		return
	}
	idx := a.size.Index(e.Cell.Row, e.Cell.Column)
	if a.arrival[idx] == 0 {
		a.arrival[idx] = e.Time
	}
}

// Save writes the arrival grid for the snapshot time.
func (a *ArrivalObserver) Save(time float64, rec *sim.IntensityRecord) {
	name := fmt.Sprintf("arrival_stream%02d_day%03d.asc", a.id, int(time))
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\n", a.size.Columns)
	fmt.Fprintf(&b, "nrows %d\n", a.size.Rows)
	for row := 0; row < a.size.Rows; row++ {
		for col := 0; col < a.size.Columns; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(a.arrival[a.size.Index(row, col)], 'f', 3, 64))
		}
		b.WriteByte('\n')
	}
	path := a.writer.path(name, false)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("could not write arrival grid")
	}
}

// Reset clears arrivals for the next run.
func (a *ArrivalObserver) Reset() {
	for i := range a.arrival {
		a.arrival[i] = 0
	}
}
