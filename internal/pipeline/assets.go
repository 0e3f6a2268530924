package pipeline

import (
	"context"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/imagegen"
	"server/internal/retry"
)

// Brand palette injected into every image prompt.
const (
	brandPrimaryColor = "#0B3C5D"
	brandAccentColor  = "#1DB9A0"
	unitAspectRatio   = "4:5"
)

// AssetGenerator renders the background image for one content unit. Model
// calls go through the retry executor; an exhausted budget degrades the unit
// (empty payload) instead of failing the job.
type AssetGenerator struct {
	Synth  imagegen.Synthesizer
	Retry  *retry.Executor
	Logger infra.Logger
}

// Generate builds the prompt and invokes the image model with retries.
func (g *AssetGenerator) Generate(ctx context.Context, jobID string, idx int, unit domain.ContentUnit, visualConcept string) (imagegen.Payload, []domain.Degradation) {
	req := imagegen.Request{
		Prompt:      g.BuildPrompt(unit, visualConcept),
		AspectRatio: unitAspectRatio,
		RequestID:   fmt.Sprintf("%s-%d", jobID, idx),
	}

	payload, outcome := retry.Do(ctx, g.Retry, "image_generate", func(ctx context.Context) (imagegen.Payload, error) {
		return g.Synth.Generate(ctx, req)
	})
	if !outcome.OK {
		g.Logger.Warn().Err(outcome.Err).
			Str("job_id", jobID).
			Int("unit", idx).
			Str("stage", "asset_generate").
			Msg("pipeline: image generation exhausted, unit stays textual")
		return imagegen.Payload{}, []domain.Degradation{{
			Stage:  "asset_generate",
			Reason: fmt.Sprintf("unit %d: %s", idx, degradeReason(outcome.Err)),
		}}
	}
	return payload, nil
}

// BuildPrompt assembles the image prompt from sanitized copy, the plan's
// visual concept and the brand constraints.
func (g *AssetGenerator) BuildPrompt(unit domain.ContentUnit, visualConcept string) string {
	sb := &strings.Builder{}

	scene := SanitizePrompt(unit.ImagePrompt)
	if scene == "" {
		scene = SanitizePrompt(unit.Headline + ". " + unit.Body)
	}
	sb.WriteString(scene)

	if concept := SanitizePrompt(visualConcept); concept != "" {
		sb.WriteString("\nArt direction: ")
		sb.WriteString(concept)
	}
	fmt.Fprintf(sb, "\nBrand palette: primary %s, accent %s.", brandPrimaryColor, brandAccentColor)

	if unit.TextPlacement == domain.TextBurnedIn {
		sb.WriteString("\nRender the following short text legibly as part of the composition: ")
		sb.WriteString(SanitizePrompt(unit.Headline))
	} else {
		sb.WriteString("\nDo not render any text in the image; leave clean space for overlays.")
	}
	sb.WriteString("\nNever render field labels, font names or sizing tokens as visible text.")
	return sb.String()
}
