package fire

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"firesim/internal/core"
)

// LoadFuelASCII reads a fuel grid from a plain ASCII raster: an `ncols` and
// `nrows` header followed by row-major integer fuel codes. Unknown codes are
// kept as-is; zero is non-fuel.
func LoadFuelASCII(path string, cellSize float64) (*GridEnvironment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fire: opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	header := map[string]int{}
	var rows [][]FuelCode
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 2 {
			if key := strings.ToLower(fields[0]); key == "ncols" || key == "nrows" {
				v, err := strconv.Atoi(fields[1])
				if err != nil {
					return nil, fmt.Errorf("fire: %s header in %s: %w", key, path, err)
				}
				header[key] = v
				continue
			}
		}
		row := make([]FuelCode, len(fields))
		for i, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("fire: row %d of %s: %w", len(rows)+1, path, err)
			}
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("fire: fuel code %d out of range in %s", v, path)
			}
			row[i] = FuelCode(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fire: reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fire: %s has no data rows", path)
	}
	columns := len(rows[0])
	for i, row := range rows {
		if len(row) != columns {
			return nil, fmt.Errorf("fire: row %d of %s has %d columns, expected %d",
				i+1, path, len(row), columns)
		}
	}
	if want, ok := header["nrows"]; ok && want != len(rows) {
		return nil, fmt.Errorf("fire: %s declares %d rows but has %d", path, want, len(rows))
	}
	if want, ok := header["ncols"]; ok && want != columns {
		return nil, fmt.Errorf("fire: %s declares %d columns but has %d", path, want, columns)
	}
	size := core.Size{Rows: len(rows), Columns: columns}
	fuel := make([]FuelCode, 0, size.Cells())
	for _, row := range rows {
		fuel = append(fuel, row...)
	}
	log.Info().Str("path", path).Int("rows", size.Rows).Int("columns", size.Columns).
		Msg("loaded fuel grid")
	return NewGridEnvironment(size, cellSize, fuel), nil
}
