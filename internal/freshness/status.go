package freshness

// Status is the categorical freshness verdict
type Status string

const (
	Fresh       Status = "FRESH"
	ConsumeSoon Status = "CONSUME SOON"
	Spoiled     Status = "SPOILED"
)

const (
	freshAbove       = 70.0
	consumeSoonAbove = 40.0
)

// Classify maps the room-temperature final freshness to a status.
// Room temperature is the storage condition assumed for the end user.
func Classify(roomFinal float64) Status {
	switch {
	case roomFinal > freshAbove:
		return Fresh
	case roomFinal > consumeSoonAbove:
		return ConsumeSoon
	default:
		return Spoiled
	}
}

// Color is the display hex color for the status
func (s Status) Color() string {
	switch s {
	case Fresh:
		return "#22c55e"
	case ConsumeSoon:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

// Icon is the display glyph for the status
func (s Status) Icon() string {
	switch s {
	case Fresh:
		return "✅"
	case ConsumeSoon:
		return "⚠️"
	default:
		return "❌"
	}
}

// Recommendation is the consumer advice attached to the status
func (s Status) Recommendation() string {
	switch s {
	case Fresh:
		return "Safe to consume. Store properly to maintain freshness."
	case ConsumeSoon:
		return "Quality is declining. Consume within the next day or two."
	default:
		return "Not recommended for consumption. Please discard."
	}
}
