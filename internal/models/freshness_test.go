package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckalain/freshness/internal/freshness"
)

func TestNewConditionsOrderAndValues(t *testing.T) {
	r := freshness.Result{
		DaysPassed: 3,
		Ideal:      freshness.Projection{Final: 89.33, DaysLeft: 31.27},
		Room:       freshness.Projection{Final: 73.47, DaysLeft: 5.14},
		Humid:      freshness.Projection{},
	}

	conditions, chart := NewConditions(r)

	assert.Equal(t, []string{"Ideal Storage", "Room Temp", "High Humidity"}, chart.Labels)
	assert.Equal(t, []float64{89.33, 73.47, 0}, chart.Freshness)
	assert.Equal(t, []float64{31.27, 5.14, 0}, chart.DaysLeft)

	require.Len(t, conditions, 3)
	assert.Equal(t, "Room Temperature", conditions[freshness.Room].Name)
	assert.Equal(t, 5.14, conditions[freshness.Room].DaysLeft)
	assert.Zero(t, conditions[freshness.Humid].Freshness)

	for _, c := range freshness.Conditions {
		assert.Equal(t, conditions[c].Name, ConditionName(c))
	}
}

func TestDecayWireKeys(t *testing.T) {
	d := NewDecay(freshness.Result{DaysPassed: 2, Room: freshness.Projection{Final: 50, DaysLeft: 3.5}})

	b, err := json.Marshal(d)
	require.NoError(t, err)

	var out map[string]float64
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, map[string]float64{
		"days_passed":     2,
		"ideal_final":     0,
		"room_final":      50,
		"humid_final":     0,
		"ideal_days_left": 0,
		"room_days_left":  3.5,
		"humid_days_left": 0,
	}, out)
}
