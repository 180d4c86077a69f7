package freshness

import (
	"math"
	"time"

	"github.com/franckalain/freshness/internal/catalog"
)

// Condition identifies one storage assumption
type Condition string

const (
	Ideal Condition = "ideal"
	Room  Condition = "room"
	Humid Condition = "humid"
)

// Conditions lists every storage condition in report order
var Conditions = []Condition{Ideal, Room, Humid}

// Projection is the decayed freshness under one storage condition
type Projection struct {
	Final    float64
	DaysLeft float64
}

// Result holds the decay projection for all three conditions
type Result struct {
	DaysPassed int
	Ideal      Projection
	Room       Projection
	Humid      Projection
}

// For returns the projection for a condition
func (r Result) For(c Condition) Projection {
	switch c {
	case Ideal:
		return r.Ideal
	case Humid:
		return r.Humid
	default:
		return r.Room
	}
}

// Round2 rounds v to two decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp limits v to [0, 100]. NaN maps to 0.
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Project applies the quadratic decay curve for a single shelf-life duration.
// Freshness falls slowly at first and faster near the end of shelf life.
func Project(initial float64, days int, shelf float64) Projection {
	if days < 0 {
		days = 0
	}
	if shelf <= 0 || math.IsNaN(shelf) {
		return Projection{}
	}

	fraction := float64(days) / shelf
	if fraction >= 1 {
		return Projection{}
	}

	final := Round2(initial * (1 - fraction*fraction))
	if final <= 0 {
		return Projection{}
	}
	return Projection{
		Final:    final,
		DaysLeft: Round2(final / 100 * shelf),
	}
}

// Decay projects initial freshness across all storage conditions of profile
func Decay(initial float64, profile catalog.Profile, daysPassed int) Result {
	if daysPassed < 0 {
		daysPassed = 0
	}
	return Result{
		DaysPassed: daysPassed,
		Ideal:      Project(initial, daysPassed, profile.IdealDays),
		Room:       Project(initial, daysPassed, profile.RoomDays),
		Humid:      Project(initial, daysPassed, profile.HumidDays),
	}
}

// DaysBetween counts whole calendar days from upload to today, in today's
// location. A future upload date yields 0.
func DaysBetween(upload, today time.Time) int {
	if upload.IsZero() {
		return 0
	}
	loc := today.Location()
	u := upload.In(loc)
	from := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
