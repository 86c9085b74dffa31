// Package taxonomy holds the static classification registries for lifedex:
// the 26-domain index taxonomy used to organize synthesized profile
// documents, and the 14 knowledge areas used to pace onboarding questions.
// Both registries are immutable and built once at package init.
package taxonomy

import (
	"fmt"
	"sort"
)

// IndexCategory is one entry in the index taxonomy. Codes are one domain
// letter followed by three digits, e.g. "C001".
type IndexCategory struct {
	Code        string
	Domain      byte
	DomainName  string
	TopicName   string
	Description string
	Priority    int // 1-10, higher means more valuable context
}

type topicDef struct {
	name        string
	description string
	priority    int
}

type domainDef struct {
	letter byte
	name   string
	topics [5]topicDef
}

var domains = []domainDef{
	{'A', "Identity & Background", [5]topicDef{
		{"Basic Information", "Name, age, location, and other foundational facts", 10},
		{"Cultural Background", "Heritage, languages, and cultural identity", 6},
		{"Personal Facts", "Standalone facts that define who the person is", 8},
		{"Life Story", "Major chapters and turning points of their life", 7},
		{"Self Perception", "How they describe and see themselves", 6},
	}},
	{'B', "Relationships", [5]topicDef{
		{"Family", "Parents, siblings, children, and extended family", 9},
		{"Romantic Life", "Partners, dating, and romantic history", 8},
		{"Friendships", "Close friends and social circle", 8},
		{"Professional Relationships", "Mentors, colleagues, and work connections", 5},
		{"Pets & Companions", "Animals in their life", 4},
	}},
	{'C', "Career & Work", [5]topicDef{
		{"Current Occupation", "What they do for a living right now", 9},
		{"Career History", "Past jobs and professional trajectory", 6},
		{"Work Environment", "Workplace, team, and day-to-day conditions", 5},
		{"Professional Skills", "Competencies exercised at work", 6},
		{"Career Aspirations", "Where they want their career to go", 7},
	}},
	{'D', "Education & Learning", [5]topicDef{
		{"Formal Education", "Schools, degrees, and certifications", 6},
		{"Current Studies", "Courses and programs in progress", 6},
		{"Self-Directed Learning", "Books, languages, and skills pursued alone", 5},
		{"Learning Style", "How they prefer to absorb new material", 4},
		{"Academic Interests", "Subjects that fascinate them", 5},
	}},
	{'E', "Goals & Ambitions", [5]topicDef{
		{"Long-Term Goals", "Multi-year ambitions and life targets", 8},
		{"Personal Goals", "Self-improvement and personal milestones", 8},
		{"Short-Term Goals", "Goals for the coming weeks and months", 7},
		{"Abandoned Goals", "Ambitions set aside and why", 4},
		{"Progress & Milestones", "Advances made toward stated goals", 6},
	}},
	{'F', "Emotions & Wellbeing", [5]topicDef{
		{"Emotional States", "Recurring moods and recent feelings", 8},
		{"Stress & Coping", "Stressors and how they handle them", 7},
		{"Mental Health", "Conditions, therapy, and self-care", 8},
		{"Joys & Gratitude", "What lifts them up", 6},
		{"Emotional Triggers", "Situations that provoke strong reactions", 6},
	}},
	{'G', "Events & Experiences", [5]topicDef{
		{"Major Life Events", "Weddings, births, moves, and other milestones", 8},
		{"Upcoming Events", "Plans on the calendar", 7},
		{"Recent Experiences", "Notable things that happened lately", 6},
		{"Recurring Events", "Traditions and regular gatherings", 5},
		{"Everyday Events", "Small day-to-day happenings", 4},
	}},
	{'H', "Preferences & Tastes", [5]topicDef{
		{"General Preferences", "Likes and dislikes across daily life", 6},
		{"Style & Aesthetics", "Fashion, design, and visual taste", 4},
		{"Communication Preferences", "How they like to be spoken with", 7},
		{"Shopping & Brands", "Products and brands they favor", 3},
		{"Dealbreakers", "Things they firmly avoid or reject", 5},
	}},
	{'I', "Health & Fitness", [5]topicDef{
		{"Physical Health", "Conditions, symptoms, and medical history", 8},
		{"Exercise & Movement", "Sports, training, and activity habits", 6},
		{"Sleep", "Sleep patterns and quality", 6},
		{"Nutrition", "Diet and eating habits", 5},
		{"Medical Care", "Doctors, treatments, and appointments", 6},
	}},
	{'J', "Insights & Reflections", [5]topicDef{
		{"World View", "Beliefs about how the world works", 5},
		{"Lessons Learned", "Wisdom drawn from experience", 6},
		{"Observations", "Patterns they notice in themselves and others", 5},
		{"Self Insights", "Realizations about their own nature", 7},
		{"Open Questions", "Things they are still figuring out", 4},
	}},
	{'K', "Finances", [5]topicDef{
		{"Income & Employment", "Earnings and financial footing", 6},
		{"Spending & Budgeting", "How money flows out", 5},
		{"Savings & Investments", "Assets and plans for them", 6},
		{"Financial Goals", "Money targets and timelines", 6},
		{"Financial Stress", "Debt and money worries", 6},
	}},
	{'L', "Home & Living", [5]topicDef{
		{"Living Situation", "Where and with whom they live", 7},
		{"Home Projects", "Renovations and improvements", 4},
		{"Neighborhood", "Their area and community", 4},
		{"Household Management", "Chores, logistics, and routines at home", 3},
		{"Moving & Relocation", "Past and planned moves", 5},
	}},
	{'M', "Travel & Places", [5]topicDef{
		{"Past Travel", "Trips taken and what they meant", 5},
		{"Upcoming Travel", "Trips being planned", 6},
		{"Dream Destinations", "Places they long to visit", 4},
		{"Travel Style", "How they like to travel", 4},
		{"Meaningful Places", "Locations with personal significance", 5},
	}},
	{'N', "Hobbies & Interests", [5]topicDef{
		{"Active Hobbies", "Pursuits they currently practice", 7},
		{"Creative Pursuits", "Art, music, writing, and making", 6},
		{"Collections", "Things they collect", 3},
		{"Past Hobbies", "Interests they have set down", 3},
		{"Curiosities", "Topics they love learning about", 5},
	}},
	{'O', "Food & Cooking", [5]topicDef{
		{"Favorite Foods", "Dishes and cuisines they love", 5},
		{"Cooking", "What and how they cook", 4},
		{"Dietary Restrictions", "Allergies and chosen restrictions", 7},
		{"Dining Out", "Restaurants and eating-out habits", 3},
		{"Food Memories", "Meals tied to people and moments", 4},
	}},
	{'P', "Technology & Media", [5]topicDef{
		{"Devices & Tools", "Hardware and software they rely on", 4},
		{"Digital Habits", "How they spend screen time", 4},
		{"News & Information", "Where they get their news", 3},
		{"Social Media", "Platforms and how they use them", 3},
		{"Tech Attitudes", "Enthusiasm or wariness toward technology", 4},
	}},
	{'Q', "Spirituality & Beliefs", [5]topicDef{
		{"Religious Practice", "Faith traditions and observance", 6},
		{"Spiritual Life", "Meditation, mindfulness, and meaning", 5},
		{"Philosophy", "Philosophical positions they hold", 4},
		{"Rituals", "Personal ceremonies and practices", 4},
		{"Questions of Meaning", "Existential questions they sit with", 4},
	}},
	{'R', "Values & Principles", [5]topicDef{
		{"Core Values", "Principles they will not compromise", 8},
		{"Ethical Positions", "Stances on moral questions", 5},
		{"Causes", "Issues they give time or money to", 5},
		{"Role Models", "People they admire and why", 4},
		{"Boundaries", "Lines they draw with others", 6},
	}},
	{'S', "Communication & Style", [5]topicDef{
		{"Conversation Style", "How they engage in dialogue", 6},
		{"Humor", "What makes them laugh", 5},
		{"Language & Expressions", "Phrases and languages they use", 4},
		{"Conflict Style", "How they handle disagreement", 5},
		{"Listening Needs", "What they need from a listener", 6},
	}},
	{'T', "Routines & Habits", [5]topicDef{
		{"Morning Routine", "How their day starts", 5},
		{"Evening Routine", "How their day winds down", 5},
		{"Weekly Rhythms", "The shape of a typical week", 5},
		{"Productivity Habits", "Systems that keep them on track", 4},
		{"Vices & Indulgences", "Habits they enjoy or wrestle with", 4},
	}},
	{'U', "Entertainment & Culture", [5]topicDef{
		{"Music", "Artists, genres, and listening habits", 5},
		{"Film & Television", "What they watch", 4},
		{"Books & Reading", "What they read", 5},
		{"Games", "Video games, board games, and play", 4},
		{"Arts & Performance", "Theatre, museums, and live events", 3},
	}},
	{'V', "Community & Society", [5]topicDef{
		{"Local Community", "Involvement where they live", 4},
		{"Volunteering", "Service they give", 5},
		{"Civic Life", "Political and civic engagement", 4},
		{"Groups & Clubs", "Organizations they belong to", 4},
		{"Cultural Events", "Festivals and community gatherings", 3},
	}},
	{'W', "Challenges & Obstacles", [5]topicDef{
		{"Current Challenges", "Difficulties being faced right now", 8},
		{"Past Struggles", "Hard seasons they came through", 6},
		{"Fears & Anxieties", "What worries them", 7},
		{"Setbacks", "Recent losses and disappointments", 6},
		{"Support Systems", "Who and what they lean on", 6},
	}},
	{'X', "Skills & Abilities", [5]topicDef{
		{"Practical Skills", "Hands-on abilities", 5},
		{"Talents", "Natural strengths", 5},
		{"Skills In Progress", "Abilities being developed", 5},
		{"Teaching & Sharing", "Skills they pass on to others", 4},
		{"Weaknesses", "Things they find hard", 5},
	}},
	{'Y', "Memories & Nostalgia", [5]topicDef{
		{"Childhood", "Growing-up years", 6},
		{"Formative Memories", "Moments that shaped them", 6},
		{"Cherished Memories", "Times they return to fondly", 5},
		{"Difficult Memories", "Painful history that still matters", 6},
		{"Anniversaries", "Dates they mark each year", 4},
	}},
	{'Z', "Future & Plans", [5]topicDef{
		{"Near-Term Plans", "Concrete plans for the months ahead", 7},
		{"Life Direction", "The broad arc they hope to follow", 7},
		{"Contingencies", "What-ifs they prepare for", 4},
		{"Retirement & Later Life", "How they picture growing older", 4},
		{"Legacy", "What they want to leave behind", 4},
	}},
}

var (
	categories []IndexCategory
	byCode     map[string]IndexCategory
)

func init() {
	byCode = make(map[string]IndexCategory, len(domains)*5)
	for _, d := range domains {
		for i, t := range d.topics {
			cat := IndexCategory{
				Code:        fmt.Sprintf("%c%03d", d.letter, i+1),
				Domain:      d.letter,
				DomainName:  d.name,
				TopicName:   t.name,
				Description: t.description,
				Priority:    t.priority,
			}
			categories = append(categories, cat)
			byCode[cat.Code] = cat
		}
	}
}

// Lookup returns the category for a code and whether it exists.
func Lookup(code string) (IndexCategory, bool) {
	c, ok := byCode[code]
	return c, ok
}

// Valid reports whether code is a registered index code.
func Valid(code string) bool {
	_, ok := byCode[code]
	return ok
}

// All returns every registered category in code order. The returned slice
// is a copy and safe to modify.
func All() []IndexCategory {
	out := make([]IndexCategory, len(categories))
	copy(out, categories)
	return out
}

// Domain returns the five categories of a domain letter, or nil if the
// letter is not a registered domain.
func Domain(letter byte) []IndexCategory {
	var out []IndexCategory
	for _, c := range categories {
		if c.Domain == letter {
			out = append(out, c)
		}
	}
	return out
}

// DomainName returns the display name for a domain letter.
func DomainName(letter byte) string {
	for _, d := range domains {
		if d.letter == letter {
			return d.name
		}
	}
	return ""
}

// ByPriority returns all categories sorted by priority descending, ties
// broken by code so the ordering is stable across runs.
func ByPriority() []IndexCategory {
	out := All()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Count returns the number of registered index codes.
func Count() int {
	return len(categories)
}
