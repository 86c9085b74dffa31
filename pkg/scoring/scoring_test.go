package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifedex/lifedex/pkg/collab/mock"
	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

func mem(content string, category profile.MemoryCategory, importance int) *profile.Memory {
	return &profile.Memory{
		ID:         content,
		UserID:     "u1",
		Content:    content,
		Category:   category,
		Importance: importance,
		CreatedAt:  time.Now(),
	}
}

func TestMemoryPoints(t *testing.T) {
	tests := []struct {
		importance int
		want       float64
	}{
		{1, 5},  // floored
		{5, 5},
		{6, 7},
		{8, 11},
		{10, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, memoryPoints(tt.importance), "importance %d", tt.importance)
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.2, confidence(1))
	assert.Equal(t, 0.8, confidence(4))
	assert.Equal(t, 1.0, confidence(5))
	assert.Equal(t, 1.0, confidence(50))
}

func TestScoreAreasAccumulates(t *testing.T) {
	memories := []*profile.Memory{
		mem("started a new job at the hospital", profile.CategoryFact, 8),
		mem("loves the night shift at work", profile.CategoryPreference, 5),
	}
	scores := scoreAreas(memories)

	career := scores[string(taxonomy.AreaCareer)]
	assert.Equal(t, 2, career.MemoryCount)
	assert.Equal(t, 16.0, career.Score) // 11 + 5
	assert.Equal(t, 0.4, career.Confidence)

	// Category routing holds even without keyword hits.
	prefs := scores[string(taxonomy.AreaPreferences)]
	assert.GreaterOrEqual(t, prefs.MemoryCount, 1)
}

func TestScoreCapsAtHundred(t *testing.T) {
	var memories []*profile.Memory
	for i := 0; i < 30; i++ {
		memories = append(memories, mem("another fact about work", profile.CategoryFact, 10))
	}
	scores := scoreAreas(memories)
	assert.Equal(t, 100.0, scores[string(taxonomy.AreaCareer)].Score)
}

func TestScorePhases(t *testing.T) {
	out := Score(Input{TotalMessageCount: 0}, nil)
	assert.Equal(t, profile.PhaseNew, out.Phase)

	out = Score(Input{TotalMessageCount: 50}, nil)
	assert.Equal(t, profile.PhaseFamiliar, out.Phase)
}

func TestDetectGapsPriorityOrder(t *testing.T) {
	// Career is the top-ranked area; with everything at zero it must
	// lead the gap list.
	gaps := detectGaps(profile.PhaseNew, map[string]profile.AreaScore{}, nil)
	require.Len(t, gaps, maxGaps)
	assert.Equal(t, taxonomy.AreaCareer, gaps[0].Area)
	assert.Equal(t, 30.0, gaps[0].Threshold)
	for i := 1; i < len(gaps); i++ {
		assert.GreaterOrEqual(t, gaps[i-1].Priority, gaps[i].Priority)
	}
}

func TestDetectGapsExcludesCoveredAreas(t *testing.T) {
	scores := map[string]profile.AreaScore{
		string(taxonomy.AreaCareer): {Score: 95},
	}
	gaps := detectGaps(profile.PhaseNew, scores, nil)
	for _, g := range gaps {
		assert.NotEqual(t, taxonomy.AreaCareer, g.Area)
	}
}

func TestDetectGapsExcludesRepeatedlyAskedAreas(t *testing.T) {
	asked := []taxonomy.Area{taxonomy.AreaCareer, taxonomy.AreaCareer, taxonomy.AreaFamily}
	gaps := detectGaps(profile.PhaseNew, map[string]profile.AreaScore{}, asked)
	for _, g := range gaps {
		assert.NotEqual(t, taxonomy.AreaCareer, g.Area, "asked twice, must be excluded")
	}
	// Asked only once stays eligible.
	areas := make(map[taxonomy.Area]bool)
	for _, g := range gaps {
		areas[g.Area] = true
	}
	assert.True(t, areas[taxonomy.AreaFamily])
}

func TestPickQuestionSkipsAskedTexts(t *testing.T) {
	gaps := []Gap{{Area: taxonomy.AreaCareer}}
	first := taxonomy.QuestionsFor(taxonomy.AreaCareer)[0]

	q, area := pickQuestion(gaps, nil)
	assert.Equal(t, first, q)
	assert.Equal(t, taxonomy.AreaCareer, area)

	q, area = pickQuestion(gaps, []string{first})
	assert.Equal(t, taxonomy.QuestionsFor(taxonomy.AreaCareer)[1], q)
	assert.Equal(t, taxonomy.AreaCareer, area)

	q, _ = pickQuestion(nil, nil)
	assert.Empty(t, q)
}

func TestQuestionGating(t *testing.T) {
	in := Input{TotalMessageCount: 0}

	// PhaseNew probability is 0.8: a draw of 0 surfaces a question, a
	// draw of 1 suppresses it.
	out := Score(in, mock.FixedRand{Value: 0})
	assert.NotEmpty(t, out.SuggestedQuestion)
	assert.NotEmpty(t, out.SuggestedArea)

	out = Score(in, mock.FixedRand{Value: 1})
	assert.Empty(t, out.SuggestedQuestion)

	// Nil rng suppresses questions entirely.
	out = Score(in, nil)
	assert.Empty(t, out.SuggestedQuestion)

	// PhaseEstablished probability is 0.1.
	late := Input{TotalMessageCount: 500}
	out = Score(late, mock.FixedRand{Value: 0.05})
	assert.NotEmpty(t, out.SuggestedQuestion)
	out = Score(late, mock.FixedRand{Value: 0.5})
	assert.Empty(t, out.SuggestedQuestion)
}

func TestOverallKnowledgeLevel(t *testing.T) {
	out := Score(Input{}, nil)
	assert.Equal(t, 0.0, out.OverallKnowledgeLevel)

	out = Score(Input{Memories: []*profile.Memory{
		mem("loves hiking in the mountains", profile.CategoryPreference, 10),
	}}, nil)
	assert.Greater(t, out.OverallKnowledgeLevel, 0.0)
	assert.LessOrEqual(t, out.OverallKnowledgeLevel, 100.0)
}
