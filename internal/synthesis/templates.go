package synthesis

import "transit-synth/internal/domain"

// Phrase is the fallback text for one (focus, aspect, valence) combination.
type Phrase struct {
	Title       string
	Explanation string
	Advice      string
	Do          []string
	Avoid       []string
}

// family groups aspect types for template lookup.
type family string

const (
	familyHard  family = "hard"
	familySoft  family = "soft"
	familyMinor family = "minor"
)

func familyOf(t domain.AspectType) family {
	switch t {
	case domain.Conjunction, domain.Opposition, domain.Square:
		return familyHard
	case domain.Trine, domain.Sextile:
		return familySoft
	}
	return familyMinor
}

type exactKey struct {
	focus   domain.FocusArea
	aspect  domain.AspectType
	valence domain.Valence
}

type familyKey struct {
	focus   domain.FocusArea
	family  family
	valence domain.Valence
}

type baseKey struct {
	focus   domain.FocusArea
	valence domain.Valence
}

type cycleKey struct {
	focus domain.FocusArea
	trend domain.IntensityTrend
}

// Templates is the phrase lookup table. Lookups fall back from the exact
// aspect type to its family and then to the focus area and valence alone.
type Templates struct {
	exact  map[exactKey]Phrase
	family map[familyKey]Phrase
	base   map[baseKey]Phrase
	cycle  map[cycleKey]string
}

// Lookup resolves the phrase for an aspect.
func (t *Templates) Lookup(focus domain.FocusArea, aspect domain.AspectType, valence domain.Valence) Phrase {
	if p, ok := t.exact[exactKey{focus, aspect, valence}]; ok {
		return p
	}
	if p, ok := t.family[familyKey{focus, familyOf(aspect), valence}]; ok {
		return p
	}
	return t.Base(focus, valence)
}

// Base resolves the phrase for a focus area and valence.
func (t *Templates) Base(focus domain.FocusArea, valence domain.Valence) Phrase {
	if p, ok := t.base[baseKey{focus, valence}]; ok {
		return p
	}
	return Phrase{Title: "A steady stretch", Advice: "Keep to your usual rhythm."}
}

// CycleSummary resolves the summary of a recurring-cycle window.
func (t *Templates) CycleSummary(focus domain.FocusArea, trend domain.IntensityTrend) string {
	if s, ok := t.cycle[cycleKey{focus, trend}]; ok {
		return s
	}
	return "A quieter period in your personal cycle."
}

// DefaultTemplates returns the built-in phrase table.
func DefaultTemplates() *Templates {
	return &Templates{
		exact: map[exactKey]Phrase{
			{domain.FocusCareer, domain.Square, domain.ValenceNegative}: {
				Title:       "Pressure at work",
				Explanation: "Responsibilities press against how you want to be seen at work.",
				Advice:      "Pick the one obligation that matters most and finish it.",
				Do:          []string{"Clarify expectations with your manager", "Break big tasks into steps"},
				Avoid:       []string{"Taking on new commitments", "Arguing over status"},
			},
			{domain.FocusRelationships, domain.Square, domain.ValenceNegative}: {
				Title:       "Relationships under strain",
				Explanation: "Closeness and freedom pull in different directions.",
				Advice:      "Say what you need plainly and listen for what they need.",
				Do:          []string{"Have the honest conversation", "Give people room"},
				Avoid:       []string{"Testing loyalty", "Keeping score"},
			},
			{domain.FocusMoney, domain.Trine, domain.ValencePositive}: {
				Title:       "Money flows more easily",
				Explanation: "Resources and opportunities line up with little effort.",
				Advice:      "Put easy gains toward something lasting.",
				Do:          []string{"Review your budget", "Ask for the rate you deserve"},
				Avoid:       []string{"Impulse purchases"},
			},
			{domain.FocusGrowth, domain.Conjunction, domain.ValencePositive}: {
				Title:       "A fresh start",
				Explanation: "A new chapter of learning opens.",
				Advice:      "Begin the course, book or practice you keep postponing.",
				Do:          []string{"Start something new", "Write down your intentions"},
				Avoid:       []string{"Waiting for perfect conditions"},
			},
		},
		family: map[familyKey]Phrase{
			{domain.FocusCareer, familyHard, domain.ValenceNegative}: {
				Title:       "Career crossroads",
				Explanation: "Ambition meets resistance, asking for patience and structure.",
				Advice:      "Work steadily and document what you deliver.",
				Do:          []string{"Focus on fundamentals", "Document your progress"},
				Avoid:       []string{"Cutting corners", "Power struggles"},
			},
			{domain.FocusCareer, familySoft, domain.ValencePositive}: {
				Title:       "Career momentum",
				Explanation: "Effort lands well and others notice.",
				Advice:      "Put your work in front of the people who decide.",
				Do:          []string{"Pitch your idea", "Network with intent"},
				Avoid:       []string{"Underselling yourself"},
			},
			{domain.FocusRelationships, familyHard, domain.ValenceNegative}: {
				Title:       "Relationship tension",
				Explanation: "Old patterns in relationships come up to be worked through.",
				Advice:      "Stay curious rather than defensive.",
				Do:          []string{"Listen before answering", "Set clear boundaries"},
				Avoid:       []string{"Ultimatums", "Reading between the lines"},
			},
			{domain.FocusRelationships, familySoft, domain.ValencePositive}: {
				Title:       "Warm connections",
				Explanation: "Affection and cooperation come easily.",
				Advice:      "Reach out to someone you have been meaning to see.",
				Do:          []string{"Plan time together", "Express appreciation"},
				Avoid:       []string{"Isolating yourself"},
			},
			{domain.FocusMoney, familyHard, domain.ValenceNegative}: {
				Title:       "Financial reckoning",
				Explanation: "Spending and security need a realistic review.",
				Advice:      "Look at the numbers before making money decisions.",
				Do:          []string{"Track expenses", "Build a buffer"},
				Avoid:       []string{"Risky bets", "Lending money"},
			},
			{domain.FocusGrowth, familyHard, domain.ValenceNegative}: {
				Title:       "Growing pains",
				Explanation: "Friction shows where you are ready to change.",
				Advice:      "Treat setbacks as information.",
				Do:          []string{"Reflect in writing", "Rest deliberately"},
				Avoid:       []string{"Forcing outcomes"},
			},
		},
		base: map[baseKey]Phrase{
			{domain.FocusCareer, domain.ValencePositive}: {
				Title:       "Steady progress at work",
				Explanation: "Work matters move in a constructive direction.",
				Advice:      "Build on what already works.",
				Do:          []string{"Finish open tasks"},
				Avoid:       []string{"Scattering your focus"},
			},
			{domain.FocusCareer, domain.ValenceNegative}: {
				Title:       "Work asks for care",
				Explanation: "Professional matters need extra attention.",
				Advice:      "Double-check details before you commit.",
				Do:          []string{"Review your plans"},
				Avoid:       []string{"Hasty decisions"},
			},
			{domain.FocusRelationships, domain.ValencePositive}: {
				Title:       "Open heart",
				Explanation: "Connection with others is supported.",
				Advice:      "Be generous with your attention.",
				Do:          []string{"Reconnect with a friend"},
				Avoid:       []string{"Holding grudges"},
			},
			{domain.FocusRelationships, domain.ValenceNegative}: {
				Title:       "Handle with care",
				Explanation: "Sensitivities run higher than usual.",
				Advice:      "Choose your words and your timing.",
				Do:          []string{"Pause before reacting"},
				Avoid:       []string{"Escalating conflicts"},
			},
			{domain.FocusMoney, domain.ValencePositive}: {
				Title:       "Resourceful days",
				Explanation: "Practical matters and resources are favored.",
				Advice:      "Plan purchases and savings calmly.",
				Do:          []string{"Set a savings goal"},
				Avoid:       []string{"Overspending"},
			},
			{domain.FocusMoney, domain.ValenceNegative}: {
				Title:       "Tighten the budget",
				Explanation: "Finances call for restraint.",
				Advice:      "Delay large expenses where you can.",
				Do:          []string{"Check subscriptions"},
				Avoid:       []string{"Speculation"},
			},
			{domain.FocusGrowth, domain.ValencePositive}: {
				Title:       "Room to grow",
				Explanation: "Learning and self-development come naturally.",
				Advice:      "Follow your curiosity.",
				Do:          []string{"Learn something new"},
				Avoid:       []string{"Staying in your comfort zone"},
			},
			{domain.FocusGrowth, domain.ValenceNegative}: {
				Title:       "Inner work",
				Explanation: "Challenges point to habits worth changing.",
				Advice:      "Be patient with yourself.",
				Do:          []string{"Journal honestly"},
				Avoid:       []string{"Self-criticism"},
			},
		},
		cycle: map[cycleKey]string{
			{domain.FocusCareer, domain.TrendRising}:         "Work themes build as your personal cycle turns toward ambition.",
			{domain.FocusCareer, domain.TrendPeaking}:        "Career matters are at the center of your cycle.",
			{domain.FocusCareer, domain.TrendEasing}:         "Work pressure eases; consolidate what you achieved.",
			{domain.FocusRelationships, domain.TrendRising}:  "Relationships gradually move into focus.",
			{domain.FocusRelationships, domain.TrendPeaking}: "Connection with others is at its height in your cycle.",
			{domain.FocusRelationships, domain.TrendEasing}:  "Social energy winds down; enjoy quieter company.",
			{domain.FocusMoney, domain.TrendRising}:          "Practical and financial matters start asking for attention.",
			{domain.FocusMoney, domain.TrendPeaking}:         "Resources and security are the main thread of your cycle.",
			{domain.FocusMoney, domain.TrendEasing}:          "Money matters settle; review and adjust.",
			{domain.FocusGrowth, domain.TrendRising}:         "Curiosity stirs as your cycle opens a learning phase.",
			{domain.FocusGrowth, domain.TrendPeaking}:        "Personal growth is at the heart of your cycle.",
			{domain.FocusGrowth, domain.TrendEasing}:         "Integrate what you learned before the next cycle begins.",
		},
	}
}
