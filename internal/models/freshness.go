package models

import (
	"time"

	"github.com/franckalain/freshness/internal/catalog"
	"github.com/franckalain/freshness/internal/freshness"
)

// PredictionRequest is one freshness prediction input. It is consumed
// synchronously and never persisted.
type PredictionRequest struct {
	Image    []byte
	Filename string // optional, checked against allowed extensions when set
	ItemID   string
	// UploadDate is the capture date; zero means the processing date
	UploadDate time.Time
}

// Decay is the wire form of a decay projection
type Decay struct {
	DaysPassed    int     `json:"days_passed"`
	IdealFinal    float64 `json:"ideal_final"`
	RoomFinal     float64 `json:"room_final"`
	HumidFinal    float64 `json:"humid_final"`
	IdealDaysLeft float64 `json:"ideal_days_left"`
	RoomDaysLeft  float64 `json:"room_days_left"`
	HumidDaysLeft float64 `json:"humid_days_left"`
}

// NewDecay flattens a decay result
func NewDecay(r freshness.Result) Decay {
	return Decay{
		DaysPassed:    r.DaysPassed,
		IdealFinal:    r.Ideal.Final,
		RoomFinal:     r.Room.Final,
		HumidFinal:    r.Humid.Final,
		IdealDaysLeft: r.Ideal.DaysLeft,
		RoomDaysLeft:  r.Room.DaysLeft,
		HumidDaysLeft: r.Humid.DaysLeft,
	}
}

// ConditionReport describes freshness under one storage condition
type ConditionReport struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Freshness   float64 `json:"freshness"`
	DaysLeft    float64 `json:"days_left"`
}

// ChartData is the series used by the frontends to draw the comparison chart
type ChartData struct {
	Labels    []string  `json:"labels"`
	Freshness []float64 `json:"freshness"`
	DaysLeft  []float64 `json:"days_left"`
}

// FreshnessReport is the result of a prediction
type FreshnessReport struct {
	Success          bool                                    `json:"success"`
	RequestID        string                                  `json:"request_id"`
	Item             string                                  `json:"fruit"`
	InitialFreshness float64                                 `json:"initial_freshness"`
	Decay            Decay                                   `json:"decay"`
	Status           freshness.Status                        `json:"status"`
	StatusColor      string                                  `json:"status_color"`
	StatusIcon       string                                  `json:"status_icon"`
	Recommendation   string                                  `json:"recommendation"`
	ShelfLife        catalog.ShelfLife                       `json:"shelf_life"`
	Conditions       map[freshness.Condition]ConditionReport `json:"conditions"`
	ChartData        ChartData                               `json:"chart_data"`
	AnalysisDate     string                                  `json:"analysis_date"`
}

var conditionInfo = map[freshness.Condition]struct {
	name, short, description string
}{
	freshness.Ideal: {"Ideal Storage", "Ideal Storage", "Refrigerated at optimal temperature"},
	freshness.Room:  {"Room Temperature", "Room Temp", "Normal room conditions (~25°C)"},
	freshness.Humid: {"High Humidity", "High Humidity", "Humid environment (>80% RH)"},
}

// ConditionName is the display name of a storage condition
func ConditionName(c freshness.Condition) string {
	return conditionInfo[c].name
}

// NewConditions builds the per-condition breakdown and chart series
func NewConditions(r freshness.Result) (map[freshness.Condition]ConditionReport, ChartData) {
	conditions := make(map[freshness.Condition]ConditionReport, len(freshness.Conditions))
	var chart ChartData
	for _, c := range freshness.Conditions {
		p := r.For(c)
		info := conditionInfo[c]
		conditions[c] = ConditionReport{
			Name:        info.name,
			Description: info.description,
			Freshness:   p.Final,
			DaysLeft:    p.DaysLeft,
		}
		chart.Labels = append(chart.Labels, info.short)
		chart.Freshness = append(chart.Freshness, p.Final)
		chart.DaysLeft = append(chart.DaysLeft, p.DaysLeft)
	}
	return conditions, chart
}
