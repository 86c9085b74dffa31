package taxonomy

// Area is one of the 14 knowledge areas used only for onboarding pacing.
// Areas are deliberately coarser than the index taxonomy.
type Area string

const (
	AreaCareer        Area = "career"
	AreaRelationships Area = "relationships"
	AreaFamily        Area = "family"
	AreaHealth        Area = "health"
	AreaGoals         Area = "goals"
	AreaBackground    Area = "background"
	AreaEmotions      Area = "emotions"
	AreaHobbies       Area = "hobbies"
	AreaPreferences   Area = "preferences"
	AreaRoutines      Area = "routines"
	AreaEducation     Area = "education"
	AreaFinances      Area = "finances"
	AreaTravel        Area = "travel"
	AreaValues        Area = "values"
)

// areaPriorityOrder is the canonical ordering used for gap prioritization,
// most valuable to know first.
var areaPriorityOrder = []Area{
	AreaCareer,
	AreaRelationships,
	AreaFamily,
	AreaHealth,
	AreaGoals,
	AreaBackground,
	AreaEmotions,
	AreaHobbies,
	AreaPreferences,
	AreaRoutines,
	AreaEducation,
	AreaFinances,
	AreaTravel,
	AreaValues,
}

// areaKeywords maps each area to lowercase content keywords. A single hit
// is enough to attribute a memory to the area.
var areaKeywords = map[Area][]string{
	AreaCareer: {"work", "job", "career", "boss", "office", "colleague",
		"profession", "company", "salary", "promotion", "shift", "coworker"},
	AreaRelationships: {"friend", "partner", "boyfriend", "girlfriend",
		"husband", "wife", "spouse", "dating", "relationship", "roommate"},
	AreaFamily: {"family", "mother", "father", "mom", "dad", "sister",
		"brother", "son", "daughter", "parent", "grandma", "grandpa",
		"aunt", "uncle", "cousin", "kids", "children"},
	AreaHealth: {"health", "doctor", "sick", "illness", "exercise", "gym",
		"sleep", "diet", "medication", "therapy", "pain", "workout", "run"},
	AreaGoals: {"goal", "dream", "plan", "ambition", "want to", "hope to",
		"aspire", "aim", "resolution", "bucket list"},
	AreaBackground: {"born", "grew up", "childhood", "hometown", "raised",
		"moved from", "originally", "background", "heritage", "immigrant"},
	AreaEmotions: {"feel", "feeling", "happy", "sad", "angry", "anxious",
		"stressed", "excited", "worried", "lonely", "grateful", "frustrated",
		"overwhelmed", "proud"},
	AreaHobbies: {"hobby", "hobbies", "play", "paint", "draw", "hike",
		"read", "reading", "music", "guitar", "piano", "garden", "cook",
		"bake", "game", "gaming", "photography", "knit", "fish", "climb"},
	AreaPreferences: {"favorite", "favourite", "prefer", "love", "hate",
		"like", "dislike", "enjoy", "can't stand"},
	AreaRoutines: {"every day", "every morning", "every night", "usually",
		"routine", "habit", "always", "schedule", "weekly", "daily"},
	AreaEducation: {"school", "university", "college", "degree", "study",
		"studying", "class", "course", "learn", "learning", "graduate"},
	AreaFinances: {"money", "budget", "saving", "savings", "debt", "rent",
		"mortgage", "invest", "investment", "paycheck", "afford", "expense"},
	AreaTravel: {"travel", "trip", "vacation", "flight", "abroad", "visit",
		"country", "city", "beach", "tour", "holiday"},
	AreaValues: {"believe", "value", "important to me", "principle", "faith",
		"religion", "spiritual", "volunteer", "justice", "honest", "integrity"},
}

// categoryAreas maps a memory category to its default knowledge areas.
// This catches memories whose wording contains no area keyword.
var categoryAreas = map[string][]Area{
	"fact":         {AreaBackground},
	"preference":   {AreaPreferences},
	"goal":         {AreaGoals},
	"event":        {AreaRoutines},
	"relationship": {AreaRelationships},
	"emotion":      {AreaEmotions},
	"insight":      {AreaValues},
}

// areaQuestions holds pre-authored onboarding questions per area, in the
// order they should be asked.
var areaQuestions = map[Area][]string{
	AreaCareer: {
		"What do you do for work these days?",
		"How do you feel about your current job?",
		"Is there a direction you'd like your career to take?",
	},
	AreaRelationships: {
		"Who are the people you spend the most time with?",
		"Is there someone special in your life?",
		"How do you usually meet new people?",
	},
	AreaFamily: {
		"Tell me a little about your family?",
		"Are you close with your family?",
		"Do any family traditions matter to you?",
	},
	AreaHealth: {
		"How have you been feeling physically lately?",
		"Do you have any routines for staying healthy?",
		"How's your sleep been?",
	},
	AreaGoals: {
		"Is there something big you're working toward right now?",
		"Where would you like to be a few years from now?",
		"What's one thing you'd love to accomplish this year?",
	},
	AreaBackground: {
		"Where did you grow up?",
		"What was your childhood like?",
		"How did you end up where you live now?",
	},
	AreaEmotions: {
		"How are you feeling today, honestly?",
		"What's been weighing on you lately?",
		"What's brought you joy recently?",
	},
	AreaHobbies: {
		"What do you like to do in your free time?",
		"Have you picked up any new interests lately?",
		"What could you talk about for hours?",
	},
	AreaPreferences: {
		"What are some of your favorite things - food, music, anything?",
		"Are there things you absolutely can't stand?",
		"How do you prefer to spend a free evening?",
	},
	AreaRoutines: {
		"What does a typical day look like for you?",
		"Do you have a morning routine?",
		"How do your weekends usually go?",
	},
	AreaEducation: {
		"Are you studying or learning anything at the moment?",
		"What was your experience with school like?",
		"Is there a skill you've always wanted to learn?",
	},
	AreaFinances: {
		"Are there any money goals you're focused on?",
		"How do you feel about your financial situation?",
	},
	AreaTravel: {
		"Do you enjoy traveling? Any favorite trips?",
		"Is there somewhere you've always wanted to go?",
	},
	AreaValues: {
		"What matters most to you in life?",
		"Are there causes or beliefs that guide you?",
	},
}

// Areas returns all knowledge areas in canonical priority order.
func Areas() []Area {
	out := make([]Area, len(areaPriorityOrder))
	copy(out, areaPriorityOrder)
	return out
}

// AreaCount returns the number of knowledge areas.
func AreaCount() int {
	return len(areaPriorityOrder)
}

// AreaRank returns the position of an area in the canonical priority
// ordering (0 = highest priority). Unknown areas rank last.
func AreaRank(a Area) int {
	for i, area := range areaPriorityOrder {
		if area == a {
			return i
		}
	}
	return len(areaPriorityOrder)
}

// AreaKeywords returns the keyword list for an area.
func AreaKeywords(a Area) []string {
	return areaKeywords[a]
}

// AreasForCategory returns the default areas for a memory category.
func AreasForCategory(category string) []Area {
	return categoryAreas[category]
}

// QuestionsFor returns the pre-authored onboarding questions for an area.
func QuestionsFor(a Area) []string {
	return areaQuestions[a]
}
