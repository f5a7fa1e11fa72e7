// Package questionpack holds role-specific interview question banks and the
// fixed fallback rotation used when the AI provider is unavailable. Packs
// are loaded from YAML; a built-in default pack is always available.
package questionpack

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is one loaded question pack.
type Pack struct {
	// Roles maps a normalized role name to seed questions the interviewer
	// can open with before adapting to the candidate's answers.
	Roles map[string][]string `yaml:"roles"`

	// Fallbacks is the deterministic rotation of canned interviewer
	// questions used when the provider fails. Selection is keyed by
	// question index so the same index always yields the same line.
	Fallbacks []string `yaml:"fallbacks"`

	// CandidateQuestionFallback is spoken when the provider fails while
	// answering a candidate's question.
	CandidateQuestionFallback string `yaml:"candidate_question_fallback"`
}

// DefaultPack returns the built-in pack used when no YAML pack is configured.
func DefaultPack() *Pack {
	return &Pack{
		Roles: map[string][]string{
			"software engineer": {
				"Walk me through a project you are proud of and the part you owned.",
				"Tell me about a production issue you debugged under pressure.",
			},
			"data analyst": {
				"Describe a dataset you worked with that turned out to be messier than expected.",
				"How do you decide which visualization fits a finding?",
			},
			"product manager": {
				"Tell me about a time you had to say no to a stakeholder.",
				"How do you decide what ships in the next release?",
			},
		},
		Fallbacks: []string{
			"Tell me about a challenging problem you solved recently and how you approached it.",
			"Describe a time you had to learn something new quickly. What did you do?",
			"Tell me about a disagreement with a colleague and how you resolved it.",
			"What accomplishment are you most proud of, and why?",
			"Describe a situation where something you built failed. What did you learn?",
			"Where do you want to grow in the next two years, and what is your plan?",
		},
		CandidateQuestionFallback: "That's a good question. I'll make sure the team follows up with a detailed answer after the interview. Do you have any other questions?",
	}
}

// Load reads a pack from a YAML file and fills gaps from the default pack.
func Load(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question pack: %w", err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse question pack YAML: %w", err)
	}

	defaults := DefaultPack()
	if len(pack.Fallbacks) == 0 {
		pack.Fallbacks = defaults.Fallbacks
	}
	if pack.CandidateQuestionFallback == "" {
		pack.CandidateQuestionFallback = defaults.CandidateQuestionFallback
	}
	if pack.Roles == nil {
		pack.Roles = defaults.Roles
	}

	return &pack, nil
}

// FallbackQuestion returns the canned question for the given question index.
// Same index always returns the same text.
func (p *Pack) FallbackQuestion(questionIndex int) string {
	if len(p.Fallbacks) == 0 {
		return DefaultPack().FallbackQuestion(questionIndex)
	}
	if questionIndex < 0 {
		questionIndex = 0
	}
	return p.Fallbacks[questionIndex%len(p.Fallbacks)]
}

// SeedQuestions returns seed questions for a role, matching loosely on the
// role name. Returns nil when the pack has nothing for the role.
func (p *Pack) SeedQuestions(role string) []string {
	normalized := strings.ToLower(strings.TrimSpace(role))
	if qs, ok := p.Roles[normalized]; ok {
		return append([]string{}, qs...)
	}
	for name, qs := range p.Roles {
		if strings.Contains(normalized, name) || strings.Contains(name, normalized) {
			return append([]string{}, qs...)
		}
	}
	return nil
}
