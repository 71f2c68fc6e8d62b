package cot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOIRegimes(t *testing.T) {
	tests := []struct {
		name                   string
		delta, accel, z, small float64
		expected               string
	}{
		{"rising and accelerating below crowded", 10, 2, 0.5, 1, RegimeExpansionEarly},
		{"rising with flat acceleration at crowded", 10, 0, 1.5, 1, RegimeExpansionLate},
		{"accelerating but already crowded", 10, 2, 2, 1, RegimeExpansionLate},
		{"falling from crowded", -10, -1, 1.6, 1, RegimeDistribution},
		{"small move near the mean", 0.5, -1, 0.2, 1, RegimeNeutral},
		{"move exactly at the small threshold", -1, -1, -0.5, 1, RegimeNeutral},
		{"small rise with acceleration stays early", 0.5, 1, 0.2, 1, RegimeExpansionEarly},
		{"rising from depressed level", 10, -1, -1.2, 1, RegimeRebuild},
		{"rising at exactly the rebuild level", 10, -1, -1, 1, RegimeRebuild},
		{"falling from mid level", -10, -1, 0.2, 1, RegimeMixed},
		{"quiet fall far from the mean", -0.5, -1, -1.2, 1, RegimeMixed},
		{"missing small threshold", 10, 2, 0.5, nan, NotApply},
		{"missing z-score", 10, 2, nan, 1, NotApply},
		{"missing acceleration", 10, nan, 0.5, 1, NotApply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := oiRegimes([]float64{tt.delta}, []float64{tt.accel}, []float64{tt.z}, []float64{tt.small})
			assert.Equal(t, tt.expected, got[0])
		})
	}
}

func TestOIDrivers(t *testing.T) {
	tests := []struct {
		name        string
		funds, comm float64
		expected    string
	}{
		{"funds at exactly the share", 6, 4, DriverFunds},
		{"funds dominate", 9, 1, DriverFunds},
		{"commercials at exactly the share", 2, 3, DriverCommercials},
		{"even split", 5, 5, RegimeMixed},
		{"just under the share", 5.9, 4.1, RegimeMixed},
		{"nothing moved", 0, 0, NotApply},
		{"missing change", nan, 4, NotApply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := oiDrivers([]float64{tt.funds}, []float64{tt.comm})
			assert.Equal(t, tt.expected, got[0])
		})
	}
}
