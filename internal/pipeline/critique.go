package pipeline

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/llm"
)

// Critic reviews a draft against the brand rubric and returns a revision.
// It is entirely best-effort: any failure keeps the original draft and is
// reported as a degradation.
type Critic struct {
	LLM    llm.Client
	Logger infra.Logger
}

type critiquePayload struct {
	Caption string               `json:"caption"`
	Units   []domain.ContentUnit `json:"units"`
}

// Review asks for a revised draft. On failure the original comes back intact.
func (c *Critic) Review(ctx context.Context, brief domain.Brief, draft Draft) (Draft, []domain.Degradation) {
	var revised critiquePayload
	err := c.LLM.CompleteStructured(ctx, llm.CompletionRequest{
		System:      "You are an exacting content editor for a healthcare brand. Respond strictly with JSON.",
		Prompt:      c.buildPrompt(brief, draft),
		Temperature: 0.4,
	}, &revised)
	if err != nil || len(revised.Units) != len(draft.Units) {
		c.Logger.Warn().Err(err).Str("stage", "critique").Msg("pipeline: critique skipped, keeping original draft")
		return draft, []domain.Degradation{{Stage: "critique", Reason: degradeReason(err)}}
	}
	for i := range revised.Units {
		normalizeUnit(&revised.Units[i])
	}
	return Draft{
		Caption: firstNonEmpty(revised.Caption, draft.Caption),
		Units:   revised.Units,
	}, nil
}

// ReviewArticle applies the same rubric to long-form markdown.
func (c *Critic) ReviewArticle(ctx context.Context, brief domain.Brief, markdown string) (string, []domain.Degradation) {
	var revised struct {
		Markdown string `json:"markdown"`
	}
	prompt := fmt.Sprintf("Review this article for voice, credibility and audience alignment (audience: %s). Improve weak passages, keep structure. Respond as JSON: {\"markdown\":string}.\n\n%s",
		brief.TargetAudience, markdown)
	err := c.LLM.CompleteStructured(ctx, llm.CompletionRequest{
		System:      "You are an exacting content editor for a healthcare brand. Respond strictly with JSON.",
		Prompt:      prompt,
		Temperature: 0.4,
	}, &revised)
	if err != nil || strings.TrimSpace(revised.Markdown) == "" {
		c.Logger.Warn().Err(err).Str("stage", "critique").Msg("pipeline: article critique skipped")
		return markdown, []domain.Degradation{{Stage: "critique", Reason: degradeReason(err)}}
	}
	return revised.Markdown, nil
}

func (c *Critic) buildPrompt(brief domain.Brief, draft Draft) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Review this draft against three criteria: brand voice (confident, warm, evidence-led), credibility (no overclaiming), and alignment with the audience %q.\n", brief.TargetAudience)
	sb.WriteString("Return the full revised draft with the same number of units in the same order.\n")
	fmt.Fprintf(sb, "Caption: %s\n", draft.Caption)
	for i, u := range draft.Units {
		fmt.Fprintf(sb, "Unit %d [%s] headline=%q body=%q image_prompt=%q\n", i+1, u.Type, u.Headline, u.Body, u.ImagePrompt)
	}
	sb.WriteString(`Respond as JSON: {"caption":string,"units":[{"type":string,"headline":string,"body":string,"background_mode":string,"image_prompt":string,"text_placement":string}]}.`)
	return sb.String()
}
