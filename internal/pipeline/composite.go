package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/imagegen"
	"server/internal/storage"
)

// Compositor overlays brand material onto a base image. It sits behind an
// interface so the model-backed implementation can be swapped for a
// deterministic image/draw one without touching the pipeline.
type Compositor interface {
	ApplyLogo(ctx context.Context, base imagegen.Payload, logo domain.BrandAsset, position string) (imagegen.Payload, error)
	ApplyBadge(ctx context.Context, base imagegen.Payload, badge domain.BrandAsset) (imagegen.Payload, error)
}

// ModelCompositor performs overlays as image-model edit calls with the base
// and the brand asset attached as references. The model blends overlays into
// photographic bases better than naive alpha compositing when copy is burned
// into the image.
type ModelCompositor struct {
	Synth  imagegen.Synthesizer
	Logger infra.Logger
}

// ApplyLogo places the logo in the requested corner.
func (m *ModelCompositor) ApplyLogo(ctx context.Context, base imagegen.Payload, logo domain.BrandAsset, position string) (imagegen.Payload, error) {
	if position == "" {
		position = domain.DefaultLogoPosition
	}
	prompt := fmt.Sprintf("Place the attached logo in the %s corner of the base image at roughly 8%% of the image width. Keep every other pixel of the base image unchanged.", strings.ReplaceAll(position, "-", " "))
	return m.overlay(ctx, base, logo, prompt)
}

// ApplyBadge places the certification badge in the bottom-left corner.
func (m *ModelCompositor) ApplyBadge(ctx context.Context, base imagegen.Payload, badge domain.BrandAsset) (imagegen.Payload, error) {
	prompt := "Place the attached certification badge in the bottom left corner of the base image, small and unobtrusive. Keep every other pixel of the base image unchanged."
	return m.overlay(ctx, base, badge, prompt)
}

func (m *ModelCompositor) overlay(ctx context.Context, base imagegen.Payload, asset domain.BrandAsset, prompt string) (imagegen.Payload, error) {
	req := imagegen.Request{Prompt: prompt}
	if len(base.Data) > 0 {
		req.References = append(req.References, imagegen.ReferenceImage{MIME: base.MIME, Data: base.Data})
	} else if base.URL != "" {
		req.ReferenceURLs = append(req.ReferenceURLs, base.URL)
	}
	if asset.URL != "" {
		req.ReferenceURLs = append(req.ReferenceURLs, asset.URL)
	}
	out, err := m.Synth.Generate(ctx, req)
	if err != nil {
		return imagegen.Payload{}, err
	}
	if out.Empty() {
		return imagegen.Payload{}, fmt.Errorf("compositor: empty overlay result")
	}
	return out, nil
}

// Brander applies the branding overlays a unit's flags call for. Each overlay
// is independently best-effort: a failed call keeps the previous image and
// records a degradation.
type Brander struct {
	Compositor Compositor
	Logo       *domain.BrandAsset
	Badge      *domain.BrandAsset
	Logger     infra.Logger
}

// Apply runs the logo and badge overlays for the unit.
func (b *Brander) Apply(ctx context.Context, idx int, unit domain.ContentUnit, base imagegen.Payload) (imagegen.Payload, []domain.Degradation) {
	var degs []domain.Degradation
	current := base

	if unit.ShowLogo && b.Logo != nil {
		out, err := b.Compositor.ApplyLogo(ctx, current, *b.Logo, unit.LogoPosition)
		if err != nil {
			b.Logger.Warn().Err(err).Int("unit", idx).Str("stage", "logo_overlay").Msg("pipeline: logo overlay failed, keeping base image")
			degs = append(degs, domain.Degradation{Stage: "logo_overlay", Reason: fmt.Sprintf("unit %d: %s", idx, err)})
		} else {
			current = out
		}
	}

	if unit.ShowISOBadge && b.Badge != nil {
		out, err := b.Compositor.ApplyBadge(ctx, current, *b.Badge)
		if err != nil {
			b.Logger.Warn().Err(err).Int("unit", idx).Str("stage", "badge_overlay").Msg("pipeline: badge overlay failed, keeping previous image")
			degs = append(degs, domain.Degradation{Stage: "badge_overlay", Reason: fmt.Sprintf("unit %d: %s", idx, err)})
		} else {
			current = out
		}
	}

	return current, degs
}

// Finisher persists a finished unit image to object storage and resolves its
// public URL. A storage failure falls back to inline data-URL delivery so the
// generated image is never lost.
type Finisher struct {
	Store   *storage.FileStore
	BaseURL string
	Logger  infra.Logger

	// Now is overridable in tests for deterministic storage keys.
	Now func() time.Time
}

// Persist writes the payload under a deterministic key and returns the ref.
func (f *Finisher) Persist(ctx context.Context, jobID string, idx int, payload imagegen.Payload) (string, []domain.Degradation) {
	if payload.Empty() {
		return "", nil
	}
	if len(payload.Data) == 0 {
		// Provider stored the file itself; its URL is the ref.
		return payload.URL, nil
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	key := fmt.Sprintf("%s/unit-%d-%d.png", jobID, idx, now().Unix())
	savedKey, err := f.Store.Write(ctx, key, payload.Data)
	if err != nil {
		f.Logger.Warn().Err(err).Str("job_id", jobID).Int("unit", idx).Str("stage", "storage").Msg("pipeline: storage write failed, delivering inline payload")
		return payload.DataURL(), []domain.Degradation{{Stage: "storage", Reason: fmt.Sprintf("unit %d: %s", idx, err)}}
	}
	return strings.TrimRight(f.BaseURL, "/") + "/" + savedKey, nil
}
