package weather

// ModelKind is a closed enumeration of forecast models this module knows
// how to address and decode.
type ModelKind int

const (
	HRRR ModelKind = iota
)

func (k ModelKind) String() string {
	switch k {
	case HRRR:
		return "HRRR"
	default:
		return "unknown"
	}
}

// gridCell names one (i, j) location in a model's grid for one station,
// alongside the grid's expected overall shape — used by the decoder to
// detect a silent grid-shape change between forecast cycles.
type gridCell struct {
	i, j   int
	nx, ny int
}

// Model carries everything the forecast decoder needs for one model: its
// maximum forecast lead time, its precomputed grid location per station,
// and a per-lead-hour standard deviation table supplied by the caller.
// The table is never hardcoded into the zero-value construction — two
// sample tables are provided below for callers who don't have their own
// calibration yet.
type Model struct {
	kind            ModelKind
	stdevByLeadHour []float64
}

// NewHRRR constructs the HRRR model with the given per-lead-hour stdev
// table. stdevByLeadHour[h] is the standard deviation, in degrees
// Fahrenheit, of the model's error at lead hour h; a table with fewer
// than MaxLeadHours()+1 entries leaves later lead hours without a stdev
// (StdevAtLead reports ok=false for those).
func NewHRRR(stdevByLeadHour []float64) Model {
	return Model{kind: HRRR, stdevByLeadHour: stdevByLeadHour}
}

// HRRRDefaultStdev and HRRRConservativeStdev are two sample per-lead-hour
// tables a caller may pass to NewHRRR: the first reflects typical
// short-range skill degradation, the second widens faster for strategies
// that want to be conservative about model confidence late in a run.
var (
	HRRRDefaultStdev = []float64{
		0.8, 0.9, 1.0, 1.2, 1.4, 1.6, 1.8, 2.0, 2.2, 2.4,
		2.6, 2.8, 3.0, 3.2, 3.4, 3.6, 3.8, 4.0,
	}
	HRRRConservativeStdev = []float64{
		1.2, 1.4, 1.7, 2.0, 2.4, 2.8, 3.2, 3.6, 4.0, 4.4,
		4.8, 5.2, 5.6, 6.0, 6.4, 6.8, 7.2, 7.6,
	}
)

// MaxLeadHours returns the furthest lead hour this model publishes.
func (m Model) MaxLeadHours() int {
	switch m.kind {
	case HRRR:
		return 18
	default:
		return 0
	}
}

// Kind reports which model this is.
func (m Model) Kind() ModelKind { return m.kind }

// GridLocation returns the precomputed (i, j) grid cell closest to
// station, the model's expected grid shape (nx, ny), and whether this
// (model, station) pair is known at all.
func (m Model) GridLocation(station Station) (i, j, nx, ny int, ok bool) {
	cell, known := m.gridCellFor(station)
	if !known {
		return 0, 0, 0, 0, false
	}
	return cell.i, cell.j, cell.nx, cell.ny, true
}

func (m Model) gridCellFor(station Station) (gridCell, bool) {
	switch m.kind {
	case HRRR:
		switch station {
		case KNYC:
			return gridCell{i: 1553, j: 698, nx: 1799, ny: 1059}, true
		}
	}
	return gridCell{}, false
}

// StdevAtLead returns the calibrated standard deviation at the given
// lead hour, if the table supplied at construction covers it.
func (m Model) StdevAtLead(leadHour int) (float64, bool) {
	if leadHour < 0 || leadHour >= len(m.stdevByLeadHour) {
		return 0, false
	}
	return m.stdevByLeadHour[leadHour], true
}
