// Package weather provides the hourly weather stream implementations the
// CLI feeds to the engine. The engine itself only depends on fire.Stream.
package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"firesim/internal/fire"
)

const hoursPerDay = 24

// SurvivalModel computes the chance fire persists in the given fuel under an
// observation. Supplied by the caller; the stream only indexes weather.
type SurvivalModel func(obs fire.Observation, fuel fire.FuelCode) float64

// HourlyStream indexes hourly observations by decimal-day time.
type HourlyStream struct {
	minDay   int
	maxDay   int
	obs      []fire.Observation
	present  []bool
	survival SurvivalModel
}

// NewHourlyStream builds a stream from observations covering
// [minDay, maxDay] with one entry per hour.
func NewHourlyStream(minDay, maxDay int, obs []fire.Observation, survival SurvivalModel) (*HourlyStream, error) {
	want := (maxDay - minDay + 1) * hoursPerDay
	if len(obs) != want {
		return nil, fmt.Errorf("weather: expected %d hourly observations for days %d..%d, got %d",
			want, minDay, maxDay, len(obs))
	}
	present := make([]bool, len(obs))
	for i := range present {
		present[i] = true
	}
	return &HourlyStream{minDay: minDay, maxDay: maxDay, obs: obs, present: present, survival: survival}, nil
}

func (s *HourlyStream) index(time float64) (int, bool) {
	day := int(time)
	hour := int((time - math.Floor(time)) * hoursPerDay)
	if day < s.minDay || day > s.maxDay {
		return 0, false
	}
	idx := (day-s.minDay)*hoursPerDay + hour
	if idx < 0 || idx >= len(s.obs) || !s.present[idx] {
		return 0, false
	}
	return idx, true
}

// At returns the observation for the given decimal-day time.
func (s *HourlyStream) At(time float64) (fire.Observation, bool) {
	idx, ok := s.index(time)
	if !ok {
		return fire.Observation{}, false
	}
	return s.obs[idx], true
}

// SurvivalProbability reports the persistence probability at the given time.
func (s *HourlyStream) SurvivalProbability(time float64, fuel fire.FuelCode) (float64, bool) {
	obs, ok := s.At(time)
	if !ok {
		return 0, false
	}
	if s.survival == nil {
		return 1, true
	}
	return s.survival(obs, fuel), true
}

// MinDay reports the first day the stream covers.
func (s *HourlyStream) MinDay() int { return s.minDay }

// MaxDay reports the last day the stream covers.
func (s *HourlyStream) MaxDay() int { return s.maxDay }

// Constant is a stream that repeats one observation for every hour of its
// range. Used for deterministic and surface-sweep runs.
type Constant struct {
	minDay   int
	maxDay   int
	obs      fire.Observation
	survival SurvivalModel
}

// NewConstant builds a constant stream over [minDay, maxDay].
func NewConstant(minDay, maxDay int, obs fire.Observation, survival SurvivalModel) *Constant {
	return &Constant{minDay: minDay, maxDay: maxDay, obs: obs, survival: survival}
}

// At returns the fixed observation when time is inside the range.
func (c *Constant) At(time float64) (fire.Observation, bool) {
	day := int(time)
	if day < c.minDay || day > c.maxDay {
		return fire.Observation{}, false
	}
	return c.obs, true
}

// SurvivalProbability reports the persistence probability at the given time.
func (c *Constant) SurvivalProbability(time float64, fuel fire.FuelCode) (float64, bool) {
	obs, ok := c.At(time)
	if !ok {
		return 0, false
	}
	if c.survival == nil {
		return 1, true
	}
	return c.survival(obs, fuel), true
}

// MinDay reports the first day the stream covers.
func (c *Constant) MinDay() int { return c.minDay }

// MaxDay reports the last day the stream covers.
func (c *Constant) MaxDay() int { return c.maxDay }

// csvHeader is the required column layout for weather input files.
const csvHeader = "Stream,Day,Hour,PREC,TEMP,RH,WS,WD,FFMC,DMC,DC,ISI,BUI,FWI"

// LoadCSV reads one or more hourly weather streams from a CSV file.
// Rows must be grouped by stream id and cover sequential hours.
func LoadCSV(path string, survival SurvivalModel) (map[int]fire.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weather: opening %s: %w", path, err)
	}
	defer f.Close()
	streams, err := readCSV(f, survival)
	if err != nil {
		return nil, fmt.Errorf("weather: reading %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("streams", len(streams)).Msg("loaded weather streams")
	return streams, nil
}

type rawStream struct {
	minDay int
	maxDay int
	byHour map[int]fire.Observation
}

func readCSV(r io.Reader, survival SurvivalModel) (map[int]fire.Stream, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if got := strings.Join(header, ","); !strings.EqualFold(strings.ReplaceAll(got, " ", ""), csvHeader) {
		return nil, fmt.Errorf("expected header %q, got %q", csvHeader, got)
	}
	raw := map[int]*rawStream{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		line++
		if len(rec) != 14 {
			return nil, fmt.Errorf("line %d: expected 14 columns, got %d", line, len(rec))
		}
		vals := make([]float64, len(rec))
		for i, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		id := int(vals[0])
		day := int(vals[1])
		hour := int(vals[2])
		if hour < 0 || hour >= hoursPerDay {
			return nil, fmt.Errorf("line %d: hour %d out of range", line, hour)
		}
		if vals[3] < 0 {
			return nil, fmt.Errorf("line %d: negative precipitation %f", line, vals[3])
		}
		obs := fire.Observation{
			Precipitation: vals[3],
			Temperature:   vals[4],
			Humidity:      vals[5],
			WindSpeed:     vals[6],
			WindDirection: vals[7],
			FFMC:          vals[8],
			DMC:           vals[9],
			DC:            vals[10],
			ISI:           vals[11],
			BUI:           vals[12],
			FWI:           vals[13],
		}
		obs.MoistureDMCPct = MoistureFromDMC(obs.DMC)
		rs, ok := raw[id]
		if !ok {
			rs = &rawStream{minDay: day, maxDay: day, byHour: map[int]fire.Observation{}}
			raw[id] = rs
		}
		if day < rs.minDay {
			return nil, fmt.Errorf("line %d: stream %d days are not sequential", line, id)
		}
		if day > rs.maxDay {
			rs.maxDay = day
		}
		key := day*hoursPerDay + hour
		if _, dup := rs.byHour[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate hour %d on day %d for stream %d", line, hour, day, id)
		}
		rs.byHour[key] = obs
	}
	if len(raw) == 0 {
		return nil, fire.ErrNoWeather
	}
	streams := make(map[int]fire.Stream, len(raw))
	for id, rs := range raw {
		n := (rs.maxDay - rs.minDay + 1) * hoursPerDay
		obs := make([]fire.Observation, n)
		present := make([]bool, n)
		for key, o := range rs.byHour {
			idx := key - rs.minDay*hoursPerDay
			obs[idx] = o
			present[idx] = true
		}
		streams[id] = &HourlyStream{
			minDay:   rs.minDay,
			maxDay:   rs.maxDay,
			obs:      obs,
			present:  present,
			survival: survival,
		}
	}
	return streams, nil
}

// MoistureFromDMC inverts the Duff Moisture Code back to a moisture content
// percentage using the standard FWI relation.
func MoistureFromDMC(dmc float64) float64 {
	return 20.0 + math.Exp((244.72-dmc)/43.43)
}
