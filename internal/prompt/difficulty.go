package prompt

import (
	"strings"

	"github.com/joseph-ayodele/studydeck/constants"
)

// Tier instructions per difficulty level. Each tier tightens vocabulary and caps output length;
// the caps are what keep a batch inside the operation's max-token budget.
var flashcardTiers = map[int][]string{
	1: {
		"Keep questions extremely simple and basic.",
		"Use elementary vocabulary and straightforward concepts.",
		"Focus only on the most fundamental information.",
		"Avoid complex terminology - use simple words.",
		"Create very short questions with direct answers.",
		"IMPORTANT: Limit answers to a maximum of 50 words.",
		"Each question should be no more than 20 words.",
		"Each question and answer combined should not exceed 70 words total.",
	},
	2: {
		"Keep questions fairly simple with basic concepts.",
		"Use common vocabulary that's accessible to beginners.",
		"Focus on foundational knowledge with minimal complexity.",
		"Limit technical terms to only the most essential ones.",
		"Create direct questions with clear answers.",
		"IMPORTANT: Limit answers to a maximum of 75 words.",
		"Each question should be no more than 25 words.",
		"Each question and answer combined should not exceed 100 words total.",
	},
	3: {
		"Use moderate complexity with standard academic vocabulary.",
		"Balance basic recall with some analytical questions.",
		"Include key technical terms where appropriate.",
		"Create a mix of straightforward and thought-provoking questions.",
		"IMPORTANT: Limit answers to a maximum of 100 words.",
		"Each question should be no more than 30 words.",
		"Each question and answer combined should not exceed 130 words total.",
	},
	4: {
		"Create challenging questions requiring deeper understanding.",
		"Use advanced vocabulary and academic language.",
		"Include complex relationships between concepts.",
		"Encourage application of knowledge to novel situations.",
		"Create questions that require synthesis of multiple concepts.",
		"IMPORTANT: Limit answers to a maximum of 120 words.",
		"Each question should be no more than 40 words.",
		"Each question and answer combined should not exceed 160 words total.",
		"Focus on clear explanations of complex topics.",
	},
	5: {
		"Create very challenging questions at graduate/PhD level.",
		"Use specialized terminology and advanced theoretical concepts.",
		"Focus on nuanced understanding and critical analysis.",
		"Include questions requiring evaluation of competing theories.",
		"Create questions that connect complex ideas across different areas.",
		"IMPORTANT: Limit answers to a maximum of 150 words.",
		"Each question should be no more than 50 words.",
		"Each question and answer combined should not exceed 200 words total.",
		"Be concise while maintaining academic rigor.",
	},
}

var mcqTiers = map[int][]string{
	1: {
		"Keep questions extremely simple and basic.",
		"Use elementary vocabulary and straightforward concepts.",
		"Focus only on the most fundamental information.",
		"Avoid complex terminology - use simple words.",
		"Make all options clearly distinct from each other.",
		"Create very straightforward questions with obvious answers.",
		"IMPORTANT: Keep questions under 20 words.",
		"Keep each answer option under 10 words.",
	},
	2: {
		"Keep questions fairly simple with basic concepts.",
		"Use common vocabulary that's accessible to beginners.",
		"Focus on foundational knowledge with minimal complexity.",
		"Limit technical terms to only the most essential ones.",
		"Make incorrect options plausible but clearly different from the correct answer.",
		"IMPORTANT: Keep questions under 25 words.",
		"Keep each answer option under 15 words.",
	},
	3: {
		"Use moderate complexity with standard academic vocabulary.",
		"Balance basic recall with some analytical questions.",
		"Include key technical terms where appropriate.",
		"Create a mix of straightforward and thought-provoking questions.",
		"Make incorrect options reasonably plausible.",
		"IMPORTANT: Keep questions under 30 words.",
		"Keep each answer option under 20 words.",
	},
	4: {
		"Create challenging questions requiring deeper understanding.",
		"Use advanced vocabulary and academic language.",
		"Include complex relationships between concepts.",
		"Make incorrect options very plausible and require careful discrimination.",
		"Create questions that require application of knowledge to novel situations.",
		"IMPORTANT: Keep questions under 40 words.",
		"Keep each answer option under 25 words.",
	},
	5: {
		"Create very challenging questions at graduate/PhD level.",
		"Use specialized terminology and advanced theoretical concepts.",
		"Focus on nuanced understanding and critical analysis.",
		"Make incorrect options extremely plausible, differing in subtle but important ways.",
		"Create questions that require synthesis of multiple complex concepts.",
		"IMPORTANT: Keep questions under 50 words.",
		"Keep each answer option under 30 words.",
	},
}

// DifficultyInstructions returns the tier text for op at difficulty d.
// Out-of-range levels use the medium tier.
func DifficultyInstructions(op constants.Operation, d int) string {
	d = constants.NormalizeDifficulty(d)
	tiers := flashcardTiers
	if op == constants.OperationMCQ {
		tiers = mcqTiers
	}
	return strings.Join(tiers[d], "\n")
}

func languageDirective(op constants.Operation, lang constants.Language) string {
	fr := lang == constants.LanguageFrench
	switch op {
	case constants.OperationAnalyze:
		if fr {
			return "Répondez en français."
		}
		return "Respond in English."
	case constants.OperationMCQ:
		if fr {
			return "Créez les questions en français."
		}
		return "Create the questions in English."
	default:
		if fr {
			return "Créez les fiches en français."
		}
		return "Create the flashcards in English."
	}
}
