package models

import (
	"time"

	"sleep-analyzer/internal/hypnogram"
)

// Satisfaction is the wearer's self-reported rating of one night.
type Satisfaction int

const (
	SatisfactionBad Satisfaction = iota
	SatisfactionNeutral
	SatisfactionGood
)

// SatisfactionFromValue decodes a persisted rating. Unknown values decode to
// NEUTRAL so old rows never fail to load.
func SatisfactionFromValue(value int) Satisfaction {
	switch Satisfaction(value) {
	case SatisfactionBad, SatisfactionNeutral, SatisfactionGood:
		return Satisfaction(value)
	default:
		return SatisfactionNeutral
	}
}

func (s Satisfaction) String() string {
	switch s {
	case SatisfactionBad:
		return "BAD"
	case SatisfactionGood:
		return "GOOD"
	default:
		return "NEUTRAL"
	}
}

// Series is one sleep session of one device. EndDate stays zero while the
// session is still recording.
type Series struct {
	ID           int64        `json:"id"`
	DeviceID     string       `json:"device_id"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Satisfaction Satisfaction `json:"satisfaction"`
}

// IsOpen reports whether the session is still recording.
func (s Series) IsOpen() bool {
	return s.EndDate.IsZero()
}

// Measurement is one raw sensor sample of a session.
type Measurement struct {
	ID           int64     `json:"id"`
	SeriesID     int64     `json:"series_id"`
	Date         time.Time `json:"date"`
	HR           int       `json:"hr"`
	ACC          float64   `json:"acc"`
	Gyro         float64   `json:"gyro"`
	BatteryLevel int       `json:"battery_level"`
	RSSILevel    int       `json:"rssi_level"`
}

// HRPoints projects the heart-rate channel of a measurement list onto the
// session time axis in milliseconds. Samples with HR 0 are sensor dropouts
// and are excluded.
func HRPoints(measurements []Measurement, start time.Time) []hypnogram.Point {
	points := make([]hypnogram.Point, 0, len(measurements))
	for _, m := range measurements {
		if m.HR == 0 {
			continue
		}
		points = append(points, hypnogram.Point{
			T: float64(m.Date.Sub(start).Milliseconds()),
			V: float64(m.HR),
		})
	}
	return points
}

// ACCPoints projects the accelerometer magnitude channel onto the session
// time axis in milliseconds.
func ACCPoints(measurements []Measurement, start time.Time) []hypnogram.Point {
	points := make([]hypnogram.Point, 0, len(measurements))
	for _, m := range measurements {
		points = append(points, hypnogram.Point{
			T: float64(m.Date.Sub(start).Milliseconds()),
			V: m.ACC,
		})
	}
	return points
}
