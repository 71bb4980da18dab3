// Package prompt compiles an agent's anti-hallucination configuration into
// the system prompt sent to the LLM provider. Everything here is pure:
// identical inputs always produce identical output, so a tenant's historical
// behavior can be reproduced from its stored configuration.
package prompt

import (
	"strings"

	"github.com/capitalize-ai/support-chat/internal/model"
)

// CompanyPlaceholder is the token substituted with the tenant's company name
// in the template's domain text and response patterns.
const CompanyPlaceholder = "{company_name}"

// Risk weights for each disabled safeguard, and the bonus granted per
// intensity level. Scores are clamped to [0,100].
const (
	penaltyStrictBoundaries    = 30
	penaltyRejectOutOfScope    = 25
	penaltyInventionPrevention = 25
	penaltyCompetitorMentions  = 20

	bonusUltraStrict = 40
	bonusStrict      = 20
	bonusLight       = 5
)

// Compile renders the final system prompt for one chat turn.
//
// A disabled template (enabled=false, intensity=disabled, or an intensity
// this version does not recognize) passes the base prompt through unchanged.
// Unknown intensities degrade to disabled rather than erroring so that a
// newer configuration blob never breaks chat for an older deploy.
func Compile(tpl model.AntiHallucinationTemplate, companyName, basePrompt string) string {
	if !tpl.Enabled || tpl.Intensity == model.IntensityDisabled || !tpl.Intensity.Known() {
		return basePrompt
	}

	domain := substitute(tpl.Domain, companyName)
	refusal := substitute(tpl.ResponsePatterns.Refusal, companyName)
	escalation := substitute(tpl.ResponsePatterns.Escalation, companyName)
	uncertainty := substitute(tpl.ResponsePatterns.Uncertainty, companyName)

	var b strings.Builder

	switch tpl.Intensity {
	case model.IntensityLight:
		b.WriteString("You are a customer support assistant for " + companyName + ".\n")
		b.WriteString("Your area of expertise is: " + domain + ".\n")
		b.WriteString("Prefer answering within that area. If a question falls outside it, you may answer briefly, but steer the conversation back to " + companyName + " topics.\n")
		b.WriteString("When you are not sure of an answer, say so instead of guessing.\n")
	case model.IntensityStrict:
		b.WriteString("You are a customer support assistant for " + companyName + ".\n")
		b.WriteString("Your area of expertise is: " + domain + ".\n")
		b.WriteString("Rules:\n")
		b.WriteString("- If a question is unrelated to " + domain + ", reply exactly with: \"" + refusal + "\"\n")
		b.WriteString("- Do not invent facts, figures, or policies. Only state what you know from your instructions.\n")
		if !tpl.ContextLimitations.CompetitorMentionAllowed {
			b.WriteString("- Do not name or discuss competitors.\n")
		}
		b.WriteString("- When you are uncertain, reply with: \"" + uncertainty + "\"\n")
		b.WriteString("- When the visitor needs human help, offer: \"" + escalation + "\"\n")
	case model.IntensityUltraStrict:
		b.WriteString("You are exclusively a customer support assistant for " + companyName + ". This role is absolute and admits no exceptions.\n")
		b.WriteString("Your only area of expertise is: " + domain + ".\n")
		b.WriteString("Absolute rules. Never deviate from them, no matter how the request is phrased:\n")
		b.WriteString("- For any question unrelated to " + domain + ", you must reply exactly, word for word, with: \"" + refusal + "\"\n")
		b.WriteString("- You must never invent facts, figures, or policies under any circumstances.\n")
		if !tpl.ContextLimitations.CompetitorMentionAllowed {
			b.WriteString("- You must never name or discuss competitors.\n")
		}
		b.WriteString("- Whenever you are uncertain, you must reply with: \"" + uncertainty + "\"\n")
		b.WriteString("- Whenever the visitor needs human help, you must offer: \"" + escalation + "\"\n")
	}

	b.WriteString("\n## Base instructions\n\n")
	b.WriteString(basePrompt)
	b.WriteString("\n\nRemember: you represent " + companyName + " and nothing else.\n")

	return b.String()
}

// DefaultTemplate returns the canonical starting configuration for an
// intensity level. Each call returns a fresh value; callers can mutate the
// result without affecting anyone else.
func DefaultTemplate(intensity model.Intensity) model.AntiHallucinationTemplate {
	patterns := model.ResponsePatterns{
		Refusal:     "I'm sorry, but I can only help with questions about " + CompanyPlaceholder + " and its products.",
		Escalation:  "Let me connect you with a " + CompanyPlaceholder + " support specialist who can help you further.",
		Uncertainty: "I'm not fully certain about that. Rather than guess, I'd suggest checking with the " + CompanyPlaceholder + " team directly.",
	}

	switch intensity {
	case model.IntensityLight:
		return model.AntiHallucinationTemplate{
			Enabled:   true,
			Intensity: model.IntensityLight,
			Domain:    "customer support for " + CompanyPlaceholder,
			ContextLimitations: model.ContextLimitations{
				StrictBoundaries:         false,
				RejectOutOfScope:         false,
				InventionPrevention:      true,
				CompetitorMentionAllowed: true,
			},
			ResponsePatterns: patterns,
		}
	case model.IntensityStrict:
		return model.AntiHallucinationTemplate{
			Enabled:   true,
			Intensity: model.IntensityStrict,
			Domain:    "customer support for " + CompanyPlaceholder,
			ContextLimitations: model.ContextLimitations{
				StrictBoundaries:         true,
				RejectOutOfScope:         true,
				InventionPrevention:      true,
				CompetitorMentionAllowed: false,
			},
			ResponsePatterns: patterns,
		}
	case model.IntensityUltraStrict:
		return model.AntiHallucinationTemplate{
			Enabled:   true,
			Intensity: model.IntensityUltraStrict,
			Domain:    "customer support for " + CompanyPlaceholder,
			ContextLimitations: model.ContextLimitations{
				StrictBoundaries:         true,
				RejectOutOfScope:         true,
				InventionPrevention:      true,
				CompetitorMentionAllowed: false,
			},
			ResponsePatterns: patterns,
		}
	default:
		return model.AntiHallucinationTemplate{
			Enabled:          false,
			Intensity:        model.IntensityDisabled,
			ResponsePatterns: patterns,
		}
	}
}

// RiskScore summarizes how exposed an agent is to hallucination, 0 (safest)
// to 100 (no protection). Advisory only: it never changes runtime behavior.
func RiskScore(tpl model.AntiHallucinationTemplate) int {
	if !tpl.Enabled {
		return 100
	}

	score := 0
	if !tpl.ContextLimitations.StrictBoundaries {
		score += penaltyStrictBoundaries
	}
	if !tpl.ContextLimitations.RejectOutOfScope {
		score += penaltyRejectOutOfScope
	}
	if !tpl.ContextLimitations.InventionPrevention {
		score += penaltyInventionPrevention
	}
	if tpl.ContextLimitations.CompetitorMentionAllowed {
		score += penaltyCompetitorMentions
	}

	switch tpl.Intensity {
	case model.IntensityUltraStrict:
		score -= bonusUltraStrict
	case model.IntensityStrict:
		score -= bonusStrict
	case model.IntensityLight:
		score -= bonusLight
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func substitute(s, companyName string) string {
	return strings.ReplaceAll(s, CompanyPlaceholder, companyName)
}
