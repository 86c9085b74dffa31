// Package scoring projects a user's memories into a knowledge coverage
// profile: per-area scores, gaps, and an optional onboarding question.
// Everything here is pure; randomness is injected.
package scoring

import (
	"sort"
	"strings"

	"github.com/lifedex/lifedex/pkg/profile"
	"github.com/lifedex/lifedex/pkg/taxonomy"
)

// Rand is the injectable randomness source gating question selection.
type Rand interface {
	Float64() float64
}

// Input is everything the scorer needs about one user.
type Input struct {
	TotalMessageCount   int
	Memories            []*profile.Memory
	RecentQuestionTexts []string
	RecentQuestionAreas []taxonomy.Area
}

// Gap is one under-covered knowledge area.
type Gap struct {
	Area      taxonomy.Area
	Score     float64
	Threshold float64
	Priority  float64
}

// Output is the computed coverage profile.
type Output struct {
	Phase                 profile.OnboardingPhase
	KnowledgeScores       map[string]profile.AreaScore
	TopGaps               []Gap
	SuggestedQuestion     string
	SuggestedArea         taxonomy.Area
	OverallKnowledgeLevel float64
}

// gapThresholds define, per phase, the score below which an area counts
// as a gap.
var gapThresholds = map[profile.OnboardingPhase]float64{
	profile.PhaseNew:               30,
	profile.PhaseGettingAcquainted: 50,
	profile.PhaseFamiliar:          70,
	profile.PhaseEstablished:       85,
}

// questionProbability gates whether any question surfaces at all.
var questionProbability = map[profile.OnboardingPhase]float64{
	profile.PhaseNew:               0.8,
	profile.PhaseGettingAcquainted: 0.5,
	profile.PhaseFamiliar:          0.2,
	profile.PhaseEstablished:       0.1,
}

const maxGaps = 5

// Score computes the coverage profile. rng may be nil, which suppresses
// question selection entirely.
func Score(in Input, rng Rand) Output {
	phase := profile.PhaseForMessageCount(in.TotalMessageCount)
	scores := scoreAreas(in.Memories)

	out := Output{
		Phase:                 phase,
		KnowledgeScores:       scores,
		OverallKnowledgeLevel: overall(scores),
	}
	out.TopGaps = detectGaps(phase, scores, in.RecentQuestionAreas)

	if rng != nil && rng.Float64() < questionProbability[phase] {
		out.SuggestedQuestion, out.SuggestedArea = pickQuestion(out.TopGaps, in.RecentQuestionTexts)
	}
	return out
}

// scoreAreas accumulates per-area points from every memory. A memory may
// feed several areas: its category maps to one, and any keyword hit in
// its lowercased content adds more.
func scoreAreas(memories []*profile.Memory) map[string]profile.AreaScore {
	scores := make(map[string]profile.AreaScore)
	for _, mem := range memories {
		points := memoryPoints(mem.Importance)
		for _, area := range matchAreas(mem) {
			s := scores[string(area)]
			s.Score += points
			if s.Score > 100 {
				s.Score = 100
			}
			s.MemoryCount++
			if mem.CreatedAt.After(s.LastUpdated) {
				s.LastUpdated = mem.CreatedAt
			}
			s.Confidence = confidence(s.MemoryCount)
			scores[string(area)] = s
		}
	}
	return scores
}

// memoryPoints maps importance into the 5..15 point band.
func memoryPoints(importance int) float64 {
	points := 5 + float64(importance-5)*2
	if points < 5 {
		points = 5
	}
	if points > 15 {
		points = 15
	}
	return points
}

func confidence(memoryCount int) float64 {
	c := float64(memoryCount) / 5
	if c > 1 {
		c = 1
	}
	return c
}

// matchAreas returns every area the memory touches: the static
// category table plus keyword containment, one hit per area suffices.
func matchAreas(mem *profile.Memory) []taxonomy.Area {
	seen := make(map[taxonomy.Area]bool)
	var out []taxonomy.Area
	for _, area := range taxonomy.AreasForCategory(string(mem.Category)) {
		if !seen[area] {
			seen[area] = true
			out = append(out, area)
		}
	}
	content := strings.ToLower(mem.Content)
	for _, area := range taxonomy.Areas() {
		if seen[area] {
			continue
		}
		for _, kw := range taxonomy.AreaKeywords(area) {
			if strings.Contains(content, kw) {
				seen[area] = true
				out = append(out, area)
				break
			}
		}
	}
	return out
}

// detectGaps finds the under-threshold areas, excluding any asked about
// twice or more in the recent window, and keeps the top five by
// priority.
func detectGaps(phase profile.OnboardingPhase, scores map[string]profile.AreaScore, recentAreas []taxonomy.Area) []Gap {
	threshold := gapThresholds[phase]

	askedCount := make(map[taxonomy.Area]int)
	for _, a := range recentAreas {
		askedCount[a]++
	}

	var gaps []Gap
	for _, area := range taxonomy.Areas() {
		score := scores[string(area)].Score
		if score >= threshold || askedCount[area] >= 2 {
			continue
		}
		reverseRank := float64(taxonomy.AreaCount() - taxonomy.AreaRank(area))
		gaps = append(gaps, Gap{
			Area:      area,
			Score:     score,
			Threshold: threshold,
			Priority:  reverseRank + (threshold-score)/10,
		})
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Priority > gaps[j].Priority
	})
	if len(gaps) > maxGaps {
		gaps = gaps[:maxGaps]
	}
	return gaps
}

// pickQuestion walks the gaps in priority order and returns the first
// pre-authored question not already asked recently.
func pickQuestion(gaps []Gap, recentTexts []string) (string, taxonomy.Area) {
	asked := make(map[string]bool, len(recentTexts))
	for _, q := range recentTexts {
		asked[q] = true
	}
	for _, gap := range gaps {
		for _, q := range taxonomy.QuestionsFor(gap.Area) {
			if !asked[q] {
				return q, gap.Area
			}
		}
	}
	return "", ""
}

func overall(scores map[string]profile.AreaScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}
