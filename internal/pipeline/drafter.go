package pipeline

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/llm"
)

// Drafter turns a plan into finished copy. Unlike the strategist, a drafter
// failure is fatal: there is no usable piece without copy, so errors bubble
// up and fail the job with the raw model output preserved as checkpoint.
type Drafter struct {
	LLM    llm.Client
	Logger infra.Logger
}

// Draft is the drafter's structured output for unit-based formats.
type Draft struct {
	Caption string               `json:"caption"`
	Units   []domain.ContentUnit `json:"units"`
}

// ArticleDraft is the drafter's output for long-form pieces.
type ArticleDraft struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// DraftUnits produces all content units for the piece in one call. The raw
// model text is returned alongside so callers can checkpoint it on failure.
func (d *Drafter) DraftUnits(ctx context.Context, brief domain.Brief, plan domain.GenerationPlan, contextText string) (Draft, string, error) {
	raw, err := d.LLM.Complete(ctx, llm.CompletionRequest{
		System:      d.systemPrompt(brief),
		Prompt:      d.buildUnitsPrompt(brief, plan, contextText),
		Temperature: 0.8,
		JSONOutput:  true,
	})
	if err != nil {
		return Draft{}, "", fmt.Errorf("drafter: %w", err)
	}

	var draft Draft
	if err := llm.DecodeStructured(raw, &draft); err != nil {
		return Draft{}, raw, fmt.Errorf("drafter: %w: %v", domain.ErrSchemaParse, err)
	}
	if len(draft.Units) == 0 {
		return Draft{}, raw, fmt.Errorf("drafter: %w: no units in payload", domain.ErrSchemaParse)
	}
	for i := range draft.Units {
		normalizeUnit(&draft.Units[i])
	}
	return draft, raw, nil
}

// DraftArticle produces a long-form markdown piece.
func (d *Drafter) DraftArticle(ctx context.Context, brief domain.Brief, plan domain.GenerationPlan, contextText string) (ArticleDraft, string, error) {
	raw, err := d.LLM.Complete(ctx, llm.CompletionRequest{
		System:      d.systemPrompt(brief),
		Prompt:      d.buildArticlePrompt(brief, plan, contextText),
		Temperature: 0.8,
		JSONOutput:  true,
	})
	if err != nil {
		return ArticleDraft{}, "", fmt.Errorf("drafter: %w", err)
	}

	var article ArticleDraft
	if err := llm.DecodeStructured(raw, &article); err != nil {
		return ArticleDraft{}, raw, fmt.Errorf("drafter: %w: %v", domain.ErrSchemaParse, err)
	}
	if strings.TrimSpace(article.Markdown) == "" {
		return ArticleDraft{}, raw, fmt.Errorf("drafter: %w: empty article body", domain.ErrSchemaParse)
	}
	return article, raw, nil
}

func (d *Drafter) systemPrompt(brief domain.Brief) string {
	return "You are a senior copywriter for a healthcare brand. " + localeDirective(brief.Locale) + " Respond strictly with JSON."
}

func (d *Drafter) buildUnitsPrompt(brief domain.Brief, plan domain.GenerationPlan, contextText string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write the copy for a %s post following this plan.\n", firstNonEmpty(brief.Format, "carousel"))
	fmt.Fprintf(sb, "Persona: %s\nAngle: %s\nVisual concept: %s\n", plan.Persona, plan.Angle, plan.VisualConcept)
	sb.WriteString("Outline:\n")
	for _, section := range plan.Outline {
		fmt.Fprintf(sb, "- [%s] %s", section.Tag, section.Title)
		if len(section.KeyPoints) > 0 {
			fmt.Fprintf(sb, " (%s)", strings.Join(section.KeyPoints, "; "))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "Topic: %s\nAudience: %s\nPain point: %s\nDesired outcome: %s\n",
		brief.Topic, brief.TargetAudience, brief.PainPoint, brief.DesiredOutcome)
	if brief.PostType != "" {
		fmt.Fprintf(sb, "Post type: %s\n", brief.PostType)
	}
	if contextText != "" {
		fmt.Fprintf(sb, "Brand reference material:\n%s\n", contextText)
	}
	sb.WriteString(`Respond as JSON: {"caption":string,"units":[{"type":"hook"|"content"|"cta","headline":string,"body":string,"background_mode":"generate"|"asset","image_prompt":string,"text_placement":"burned_in"|"clean"}]}. `)
	sb.WriteString("Image prompts describe the scene only; never include field labels, font names or sizing in them.")
	return sb.String()
}

func (d *Drafter) buildArticlePrompt(brief domain.Brief, plan domain.GenerationPlan, contextText string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a long-form article following this plan.\n")
	fmt.Fprintf(sb, "Persona: %s\nAngle: %s\n", plan.Persona, plan.Angle)
	sb.WriteString("Outline:\n")
	for _, section := range plan.Outline {
		fmt.Fprintf(sb, "- %s\n", section.Title)
	}
	fmt.Fprintf(sb, "Topic: %s\nAudience: %s\n", brief.Topic, brief.TargetAudience)
	if contextText != "" {
		fmt.Fprintf(sb, "Brand reference material:\n%s\n", contextText)
	}
	sb.WriteString(`Respond as JSON: {"title":string,"markdown":string}. The markdown field holds the full article body.`)
	return sb.String()
}

// localeDirective maps a negotiated locale onto the writing language.
func localeDirective(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "pt") {
		return "Write all copy in Brazilian Portuguese."
	}
	return "Write all copy in English."
}

// normalizeUnit fills defaults the model may omit. Branding flags are not
// trusted here at all; domain.ApplyBranding recomputes them later.
func normalizeUnit(u *domain.ContentUnit) {
	switch u.Type {
	case domain.UnitTypeHook, domain.UnitTypeContent, domain.UnitTypeCTA:
	default:
		u.Type = domain.UnitTypeContent
	}
	if u.BackgroundMode != domain.BackgroundAsset {
		u.BackgroundMode = domain.BackgroundGenerate
	}
	if u.TextPlacement != domain.TextClean {
		u.TextPlacement = domain.TextBurnedIn
	}
}
