package fire

import "math"

// fuelParams are the spread-rate curve coefficients for one fuel code,
// following the usual a*(1-exp(-b*ISI))^c form with a buildup adjustment.
type fuelParams struct {
	a, b, c float64
	q       float64
	bui0    float64
	// load is fuel consumption in kg/m^2, driving intensity.
	load float64
	// csi is the critical intensity for crown involvement, kW/m.
	// Zero means the fuel never crowns.
	csi float64
}

// Named fuel codes for the default table. Zero stays the non-fuel code.
const (
	FuelGrass FuelCode = iota + 1
	FuelBorealSpruce
	FuelMaturePine
	FuelMixedwood
)

var defaultParams = map[FuelCode]fuelParams{
	FuelGrass:        {a: 190, b: 0.0310, c: 1.4, q: 1.0, bui0: 1, load: 0.35},
	FuelBorealSpruce: {a: 110, b: 0.0282, c: 1.5, q: 0.70, bui0: 64, load: 1.6, csi: 4000},
	FuelMaturePine:   {a: 30, b: 0.0697, c: 4.0, q: 0.80, bui0: 62, load: 1.2, csi: 6000},
	FuelMixedwood:    {a: 110, b: 0.0282, c: 1.5, q: 0.80, bui0: 50, load: 1.1, csi: 5000},
}

// DefaultLookup builds the standard capability table: one resolved behavior
// per fuel code, no per-call dispatch.
func DefaultLookup() TableLookup {
	table := TableLookup{}
	for code, p := range defaultParams {
		p := p
		table[code] = Behavior{
			Spread: func(obs Observation, slope, aspect float64) Spread {
				return spreadFor(p, obs, slope, aspect)
			},
		}
	}
	return table
}

func spreadFor(p fuelParams, obs Observation, slope, aspect float64) Spread {
	ros := p.a * math.Pow(1-math.Exp(-p.b*obs.ISI), p.c)
	if p.bui0 > 1 && obs.BUI > 0 {
		ros *= math.Exp(50 * math.Log(p.q) * (1/obs.BUI - 1/p.bui0))
	}
	// fire spreads downwind; wind direction reports where wind comes from
	dir := math.Mod(obs.WindDirection+180, 360)
	ros *= slopeFactor(slope, aspect, dir)
	intensity := 300 * p.load * ros
	var crown float64
	if p.csi > 0 && intensity > p.csi {
		crown = math.Min(1, (intensity-p.csi)/p.csi)
		intensity *= 1 + crown
	}
	return Spread{
		HeadROS:       ros,
		Direction:     dir,
		Intensity:     intensity,
		CrownFraction: crown,
	}
}

// slopeFactor boosts spread heading upslope and damps it heading downslope.
// slope is percent rise, aspect the downhill-facing direction in degrees.
func slopeFactor(slope, aspect, dir float64) float64 {
	if slope <= 0 {
		return 1
	}
	boost := math.Exp(3.533*math.Pow(slope/100, 1.2)) - 1
	if boost > 3 {
		boost = 3
	}
	// upslope is opposite the downhill aspect
	align := math.Cos((dir - math.Mod(aspect+180, 360)) * math.Pi / 180)
	return math.Max(0.2, 1+boost*align)
}

// DefaultSurvival estimates the chance fire persists from the fine fuel
// moisture and recent rain. Heavy rain can put any fuel out; a dry grass
// stand rarely goes out on its own.
func DefaultSurvival(obs Observation, fuel FuelCode) float64 {
	const minFFMC = 74.0
	p := (obs.FFMC - minFFMC) / (101 - minFFMC)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	p *= math.Exp(-0.5 * obs.Precipitation)
	if fuel == FuelGrass {
		p = math.Min(1, p*1.2)
	}
	return p
}
