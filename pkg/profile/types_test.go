package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseForMessageCount(t *testing.T) {
	tests := []struct {
		count int
		want  OnboardingPhase
	}{
		{0, PhaseNew},
		{4, PhaseNew},
		{5, PhaseGettingAcquainted},
		{24, PhaseGettingAcquainted},
		{25, PhaseFamiliar},
		{99, PhaseFamiliar},
		{100, PhaseEstablished},
		{10000, PhaseEstablished},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseForMessageCount(tt.count), "count %d", tt.count)
	}
}

func TestPriorityForImportance(t *testing.T) {
	tests := []struct {
		importance int
		want       RetrievalPriority
	}{
		{1, PriorityLow},
		{4, PriorityLow},
		{5, PriorityMedium},
		{7, PriorityMedium},
		{8, PriorityHigh},
		{10, PriorityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PriorityForImportance(tt.importance), "importance %d", tt.importance)
	}
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.42, Clamp01(0.42))

	assert.Equal(t, 0.0, ClampScore(-10))
	assert.Equal(t, 100.0, ClampScore(250))
	assert.Equal(t, 73.0, ClampScore(73))

	assert.Equal(t, 1, ClampImportance(-3))
	assert.Equal(t, 10, ClampImportance(99))
	assert.Equal(t, 6, ClampImportance(6))
}

func TestMetadataSuperseded(t *testing.T) {
	var md MemoryMetadata
	assert.False(t, md.Superseded())

	now := time.Now()
	md.SupersededBy = "new_memory"
	md.SupersededAt = &now
	assert.True(t, md.Superseded())
}
