// Package out writes simulation results: burn probability grids, fire size
// lists, and size distribution charts.
package out

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	chart "github.com/wcharczuk/go-chart/v2"

	"firesim/internal/sim"
)

// interimPrefix marks outputs written before the run finished cleanly.
const interimPrefix = "interim_"

// Writer saves run outputs into a directory. Interim saves are prefixed and
// remembered so a later final save can replace them.
type Writer struct {
	dir     string
	interim []string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("out: creating %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) path(name string, interim bool) string {
	if interim {
		name = interimPrefix + name
		w.interim = append(w.interim, name)
	}
	return filepath.Join(w.dir, name)
}

// SaveAll writes every probability map plus the pooled size outputs. When
// interim is true every file carries the interim prefix; a later final save
// removes them.
func (w *Writer) SaveAll(probabilities map[float64]*sim.ProbabilityMap, startDay int, interim bool) error {
	times := make([]float64, 0, len(probabilities))
	for t := range probabilities {
		times = append(times, t)
	}
	sort.Float64s(times)
	var lastSizes []float64
	for _, t := range times {
		pm := probabilities[t]
		day := int(t) - startDay
		if err := w.saveProbability(pm, day, interim); err != nil {
			return err
		}
		pm.Show()
		lastSizes = pm.Sizes()
	}
	if len(lastSizes) > 0 {
		if err := w.saveSizes(lastSizes, interim); err != nil {
			return err
		}
		if err := w.saveSizeChart(lastSizes, interim); err != nil {
			// the chart is a nicety; a render failure should not sink the run
			log.Warn().Err(err).Msg("size chart not written")
		}
	}
	if !interim {
		w.removeInterim()
	}
	return nil
}

// saveProbability writes one snapshot as an ASCII grid of burn fractions,
// plus the per-class count grids.
func (w *Writer) saveProbability(pm *sim.ProbabilityMap, day int, interim bool) error {
	runs := pm.NumSizes()
	all, high, moderate, low := pm.Counts()
	name := fmt.Sprintf("probability_day%02d.asc", day)
	if err := w.writeGrid(w.path(name, interim), pm, func(idx int) string {
		if runs == 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(all[idx])/float64(runs), 'f', 4, 64)
	}); err != nil {
		return err
	}
	classes := map[string][]uint32{"high": high, "moderate": moderate, "low": low}
	for class, counts := range classes {
		name := fmt.Sprintf("intensity_%s_day%02d.asc", class, day)
		counts := counts
		if err := w.writeGrid(w.path(name, interim), pm, func(idx int) string {
			return strconv.FormatUint(uint64(counts[idx]), 10)
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeGrid writes a space-separated row-major grid with a small header.
func (w *Writer) writeGrid(path string, pm *sim.ProbabilityMap, value func(idx int) string) error {
	size := pm.Size()
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\n", size.Columns)
	fmt.Fprintf(&b, "nrows %d\n", size.Rows)
	for row := 0; row < size.Rows; row++ {
		for col := 0; col < size.Columns; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(value(size.Index(row, col)))
		}
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("out: writing %s: %w", path, err)
	}
	log.Info().Str("file", path).Msg("wrote")
	return nil
}

// saveSizes writes the final fire sizes, one per line in hectares.
func (w *Writer) saveSizes(sizes []float64, interim bool) error {
	var b strings.Builder
	b.WriteString("size_ha\n")
	for _, v := range sizes {
		b.WriteString(strconv.FormatFloat(v, 'f', 1, 64))
		b.WriteByte('\n')
	}
	path := w.path("sizes.csv", interim)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("out: writing %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("count", len(sizes)).Msg("wrote")
	return nil
}

// saveSizeChart renders the empirical size distribution as a PNG.
func (w *Writer) saveSizeChart(sizes []float64, interim bool) error {
	xs := make([]float64, len(sizes))
	for i := range sizes {
		xs[i] = float64(i+1) / float64(len(sizes)) * 100
	}
	graph := chart.Chart{
		Title:  "Final fire size distribution",
		XAxis:  chart.XAxis{Name: "Percentile"},
		YAxis:  chart.YAxis{Name: "Size (ha)"},
		Series: []chart.Series{chart.ContinuousSeries{XValues: xs, YValues: sizes}},
	}
	path := w.path("sizes.png", interim)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("out: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("out: rendering %s: %w", path, err)
	}
	log.Info().Str("file", path).Msg("wrote")
	return nil
}

// removeInterim deletes interim outputs left from earlier saves.
func (w *Writer) removeInterim() {
	for _, name := range w.interim {
		path := filepath.Join(w.dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", path).Msg("could not remove interim output")
		}
	}
	w.interim = nil
}
