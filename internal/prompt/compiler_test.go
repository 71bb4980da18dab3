package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/support-chat/internal/model"
	"github.com/capitalize-ai/support-chat/internal/prompt"
)

const basePrompt = "Answer politely and keep replies short."

func TestCompileDisabledPassThrough(t *testing.T) {
	tests := []struct {
		name string
		tpl  model.AntiHallucinationTemplate
	}{
		{
			name: "enabled false",
			tpl: model.AntiHallucinationTemplate{
				Enabled:   false,
				Intensity: model.IntensityStrict,
			},
		},
		{
			name: "intensity disabled",
			tpl: model.AntiHallucinationTemplate{
				Enabled:   true,
				Intensity: model.IntensityDisabled,
			},
		},
		{
			name: "unknown intensity degrades to disabled",
			tpl: model.AntiHallucinationTemplate{
				Enabled:   true,
				Intensity: model.Intensity("paranoid"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := prompt.Compile(tt.tpl, "Acme", basePrompt)
			assert.Equal(t, basePrompt, got)
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	tpl := prompt.DefaultTemplate(model.IntensityStrict)

	first := prompt.Compile(tpl, "Acme", basePrompt)
	second := prompt.Compile(tpl, "Acme", basePrompt)

	assert.Equal(t, first, second)
}

func TestCompileSubstitutesPlaceholderEverywhere(t *testing.T) {
	for _, intensity := range []model.Intensity{
		model.IntensityLight,
		model.IntensityStrict,
		model.IntensityUltraStrict,
	} {
		t.Run(string(intensity), func(t *testing.T) {
			tpl := prompt.DefaultTemplate(intensity)
			require.True(t, tpl.Enabled)

			got := prompt.Compile(tpl, "Acme Widgets", basePrompt)

			assert.NotContains(t, got, prompt.CompanyPlaceholder)
			assert.Contains(t, got, "Acme Widgets")
			assert.Contains(t, got, basePrompt)
		})
	}
}

func TestCompileStrictIncludesVerbatimRefusal(t *testing.T) {
	tpl := prompt.DefaultTemplate(model.IntensityStrict)
	tpl.ResponsePatterns.Refusal = "Sorry, ask " + prompt.CompanyPlaceholder + " support instead."

	got := prompt.Compile(tpl, "Acme", basePrompt)

	assert.Contains(t, got, "Sorry, ask Acme support instead.")
}

func TestCompileCompetitorRuleFollowsFlag(t *testing.T) {
	tpl := prompt.DefaultTemplate(model.IntensityStrict)
	require.False(t, tpl.ContextLimitations.CompetitorMentionAllowed)
	assert.Contains(t, prompt.Compile(tpl, "Acme", basePrompt), "competitors")

	tpl.ContextLimitations.CompetitorMentionAllowed = true
	assert.NotContains(t, prompt.Compile(tpl, "Acme", basePrompt), "competitors")
}

func TestDefaultTemplateReturnsFreshValues(t *testing.T) {
	a := prompt.DefaultTemplate(model.IntensityStrict)
	a.ResponsePatterns.Refusal = "mutated"
	a.ContextLimitations.InventionPrevention = false

	b := prompt.DefaultTemplate(model.IntensityStrict)
	assert.NotEqual(t, "mutated", b.ResponsePatterns.Refusal)
	assert.True(t, b.ContextLimitations.InventionPrevention)
}

func TestDefaultTemplateUnknownIntensityIsDisabled(t *testing.T) {
	tpl := prompt.DefaultTemplate(model.Intensity("bogus"))
	assert.False(t, tpl.Enabled)
	assert.Equal(t, model.IntensityDisabled, tpl.Intensity)
}

func TestRiskScoreDisabledIsMaximum(t *testing.T) {
	tpl := prompt.DefaultTemplate(model.IntensityStrict)
	tpl.Enabled = false
	assert.Equal(t, 100, prompt.RiskScore(tpl))
}

func TestRiskScoreBounds(t *testing.T) {
	allOff := model.AntiHallucinationTemplate{
		Enabled:   true,
		Intensity: model.IntensityDisabled,
		ContextLimitations: model.ContextLimitations{
			CompetitorMentionAllowed: true,
		},
	}
	assert.Equal(t, 100, prompt.RiskScore(allOff))

	allOn := model.AntiHallucinationTemplate{
		Enabled:   true,
		Intensity: model.IntensityUltraStrict,
		ContextLimitations: model.ContextLimitations{
			StrictBoundaries:    true,
			RejectOutOfScope:    true,
			InventionPrevention: true,
		},
	}
	assert.Equal(t, 0, prompt.RiskScore(allOn))
}

// Disabling any single safeguard must never lower the score, and raising
// intensity with the flags held constant must never raise it.
func TestRiskScoreMonotonic(t *testing.T) {
	base := model.AntiHallucinationTemplate{
		Enabled:   true,
		Intensity: model.IntensityStrict,
		ContextLimitations: model.ContextLimitations{
			StrictBoundaries:    true,
			RejectOutOfScope:    true,
			InventionPrevention: true,
		},
	}
	baseScore := prompt.RiskScore(base)

	mutations := []func(*model.ContextLimitations){
		func(c *model.ContextLimitations) { c.StrictBoundaries = false },
		func(c *model.ContextLimitations) { c.RejectOutOfScope = false },
		func(c *model.ContextLimitations) { c.InventionPrevention = false },
		func(c *model.ContextLimitations) { c.CompetitorMentionAllowed = true },
	}
	for _, mutate := range mutations {
		tpl := base
		mutate(&tpl.ContextLimitations)
		assert.GreaterOrEqual(t, prompt.RiskScore(tpl), baseScore)
	}

	order := []model.Intensity{
		model.IntensityLight,
		model.IntensityStrict,
		model.IntensityUltraStrict,
	}
	prev := 101
	for _, intensity := range order {
		tpl := base
		tpl.ContextLimitations.StrictBoundaries = false
		tpl.Intensity = intensity
		score := prompt.RiskScore(tpl)
		assert.LessOrEqual(t, score, prev, "intensity %s", intensity)
		prev = score
	}
}

func TestCompileWordingTiers(t *testing.T) {
	strict := prompt.Compile(prompt.DefaultTemplate(model.IntensityStrict), "Acme", basePrompt)
	ultra := prompt.Compile(prompt.DefaultTemplate(model.IntensityUltraStrict), "Acme", basePrompt)
	light := prompt.Compile(prompt.DefaultTemplate(model.IntensityLight), "Acme", basePrompt)

	assert.NotEqual(t, strict, ultra)
	assert.Contains(t, ultra, "Absolute rules")
	assert.False(t, strings.Contains(light, "reply exactly"), "light must carry no hard refusal language")
}
