package taxonomy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryShape(t *testing.T) {
	assert.Equal(t, 130, Count())

	seen := make(map[string]bool)
	for _, cat := range All() {
		assert.False(t, seen[cat.Code], "duplicate code %s", cat.Code)
		seen[cat.Code] = true
		assert.GreaterOrEqual(t, cat.Domain, byte('A'))
		assert.LessOrEqual(t, cat.Domain, byte('Z'))
		assert.NotEmpty(t, cat.TopicName, "code %s", cat.Code)
		assert.NotEmpty(t, cat.DomainName, "code %s", cat.Code)
	}

	// Each domain letter carries exactly five topics.
	for letter := byte('A'); letter <= 'Z'; letter++ {
		assert.Len(t, Domain(letter), 5, "domain %c", letter)
		for i := 1; i <= 5; i++ {
			assert.True(t, Valid(fmt.Sprintf("%c%03d", letter, i)))
		}
	}
}

func TestLookup(t *testing.T) {
	cat, ok := Lookup("C001")
	require.True(t, ok)
	assert.Equal(t, "Current Occupation", cat.TopicName)
	assert.Equal(t, byte('C'), cat.Domain)

	_, ok = Lookup("C006")
	assert.False(t, ok)
	_, ok = Lookup("c001")
	assert.False(t, ok)
	assert.False(t, Valid(""))
}

func TestCategoryFallbackCodesExist(t *testing.T) {
	// Codes the classifier falls back to must stay registered.
	for _, code := range []string{"A003", "H001", "E002", "G005", "B003", "F001", "J004"} {
		assert.True(t, Valid(code), "code %s", code)
	}
}

func TestByPriorityOrdering(t *testing.T) {
	cats := ByPriority()
	require.Len(t, cats, Count())
	for i := 1; i < len(cats); i++ {
		prev, cur := cats[i-1], cats[i]
		if prev.Priority == cur.Priority {
			assert.Less(t, prev.Code, cur.Code)
			continue
		}
		assert.Greater(t, prev.Priority, cur.Priority)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0].TopicName = "mutated"
	assert.NotEqual(t, "mutated", All()[0].TopicName)
}

func TestAreas(t *testing.T) {
	assert.Equal(t, 14, AreaCount())
	assert.Len(t, Areas(), AreaCount())

	for i, area := range Areas() {
		assert.Equal(t, i, AreaRank(area))
		assert.NotEmpty(t, AreaKeywords(area), "area %s", area)
		assert.NotEmpty(t, QuestionsFor(area), "area %s", area)
	}
	assert.Equal(t, AreaCount(), AreaRank(Area("not-an-area")))
}

func TestAreasForCategory(t *testing.T) {
	for _, category := range []string{"fact", "preference", "goal", "event", "relationship", "emotion", "insight"} {
		assert.NotEmpty(t, AreasForCategory(category), "category %s", category)
	}
	assert.Empty(t, AreasForCategory("unknown"))
}
