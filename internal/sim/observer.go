package sim

// Observer is notified as a scenario burns cells and reaches save points.
// Implementations persist raster or vector output; the engine only defines
// when they fire.
type Observer interface {
	// CellBurned fires once per newly burned cell.
	CellBurned(e Event)
	// Save fires at each output snapshot with the current burn state.
	Save(time float64, rec *IntensityRecord)
	// Reset fires when the owning scenario is reset for another run.
	Reset()
}
