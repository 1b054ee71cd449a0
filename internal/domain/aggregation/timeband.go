// Package aggregation rolls raw readings up into daily and monthly
// totals and computes the time-band consumption summary served by the
// dashboard. Rollups are recomputed wholesale for a window after each
// import; the band summary is cached with a TTL.
package aggregation

// TimeBand partitions the day by local hour of measurement.
type TimeBand string

const (
	BandLateNight TimeBand = "late_night" // [00:00, 05:00)
	BandMorning   TimeBand = "morning"    // [05:00, 10:00)
	BandDaytime   TimeBand = "daytime"    // [10:00, 15:00)
	BandEvening   TimeBand = "evening"    // [15:00, 19:00)
	BandNight     TimeBand = "night"      // [19:00, 24:00)
)

// Bands lists every band in display order.
var Bands = []TimeBand{BandLateNight, BandMorning, BandDaytime, BandEvening, BandNight}

// BandFor maps a local hour (0-23) to its band.
func BandFor(hour int) TimeBand {
	switch {
	case hour < 5:
		return BandLateNight
	case hour < 10:
		return BandMorning
	case hour < 15:
		return BandDaytime
	case hour < 19:
		return BandEvening
	default:
		return BandNight
	}
}
