package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/imagegen"
	"server/internal/rag"
)

// regenerateUnitCap limits how many units one regeneration request may touch.
const regenerateUnitCap = 5

// Orchestrator drives jobs through their stages and owns all status
// transitions. Stages are composed explicitly per job kind; only the drafter
// and persistence can fail a job, everything else degrades.
type Orchestrator struct {
	Jobs       domain.JobRepository
	Artifacts  domain.ArtifactRepository
	Retriever  *rag.Retriever
	Strategist *Strategist
	Drafter    *Drafter
	Critic     *Critic
	Assets     *AssetGenerator
	Brander    *Brander
	Finisher   *Finisher
	Batcher    *Batcher
	Logger     infra.Logger
}

// JobResult is the payload written to a completed job.
type JobResult struct {
	ArtifactID      string                  `json:"artifact_id,omitempty"`
	Plan            *domain.GenerationPlan  `json:"plan,omitempty"`
	Plans           []domain.GenerationPlan `json:"plans,omitempty"`
	Caption         string                  `json:"caption,omitempty"`
	Units           []domain.ContentUnit    `json:"units,omitempty"`
	ArticleTitle    string                  `json:"article_title,omitempty"`
	ArticleMarkdown string                  `json:"article_markdown,omitempty"`
	ArticleHTML     string                  `json:"article_html,omitempty"`
	Degradations    []domain.Degradation    `json:"degradations,omitempty"`
}

// Process runs one claimed job to completion or failure.
func (o *Orchestrator) Process(ctx context.Context, job *domain.Job) error {
	start := time.Now()

	var brief domain.Brief
	if err := json.Unmarshal(job.BriefJSON, &brief); err != nil {
		failErr := fmt.Errorf("%w: %v", domain.ErrInvalidBrief, err)
		o.fail(ctx, job.ID, failErr, job.BriefJSON)
		return failErr
	}

	var (
		result     *JobResult
		checkpoint []byte
		err        error
	)
	switch job.Kind {
	case domain.JobKindCarousel:
		result, checkpoint, err = o.processCarousel(ctx, job, brief)
	case domain.JobKindArticle:
		result, checkpoint, err = o.processArticle(ctx, job, brief)
	case domain.JobKindPlan:
		result, checkpoint, err = o.processPlan(ctx, brief)
	case domain.JobKindImageOnly:
		result, checkpoint, err = o.processImageOnly(ctx, job, brief)
	default:
		err = fmt.Errorf("unsupported job kind %q", job.Kind)
	}
	if err != nil {
		o.fail(ctx, job.ID, err, checkpoint)
		return err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		failErr := fmt.Errorf("marshal result: %w", err)
		o.fail(ctx, job.ID, failErr, nil)
		return failErr
	}
	if err := o.Jobs.Complete(ctx, job.ID, payload); err != nil {
		// Generation succeeded but the result could not be stored. The
		// checkpoint keeps the payload recoverable.
		failErr := fmt.Errorf("persist result: %w", err)
		o.fail(ctx, job.ID, failErr, payload)
		return failErr
	}

	o.Logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("status", string(domain.JobStatusCompleted)).
		Dur("elapsed_ms", time.Since(start)).
		Msg("orchestrator: job completed")
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, failErr error, checkpoint []byte) {
	o.Logger.Error().Err(failErr).Str("job_id", jobID).Msg("orchestrator: job failed")
	if err := o.Jobs.Fail(ctx, jobID, failErr.Error(), checkpoint); err != nil {
		o.Logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: recording failure failed")
	}
}

func (o *Orchestrator) processCarousel(ctx context.Context, job *domain.Job, brief domain.Brief) (*JobResult, []byte, error) {
	ragRes, degs := o.Retriever.Retrieve(ctx, retrievalQuery(brief))

	plan, pd := o.Strategist.Plan(ctx, brief, ragRes.Text())
	degs = append(degs, pd...)

	draft, raw, err := o.Drafter.DraftUnits(ctx, brief, plan, ragRes.Text())
	if err != nil {
		return nil, []byte(raw), err
	}

	draft, cd := o.Critic.Review(ctx, brief, draft)
	degs = append(degs, cd...)

	units := domain.ApplyBranding(domain.CapUnits(draft.Units, domain.MaxUnits))

	// Draft-first persistence: the copy survives any later image failure.
	artifact := &domain.Artifact{
		ID:      uuid.NewString(),
		JobID:   job.ID,
		UserID:  job.UserID,
		Topic:   brief.Topic,
		Caption: draft.Caption,
		Units:   units,
		Status:  domain.ArtifactStatusDraft,
	}
	if err := o.Artifacts.Create(ctx, artifact); err != nil {
		// Finished copy without a stored artifact is not a success; the
		// checkpoint keeps the draft recoverable.
		checkpoint, _ := json.Marshal(artifact)
		return nil, checkpoint, fmt.Errorf("persist draft artifact: %w", err)
	}

	if brief.WantImages {
		var id []domain.Degradation
		units, id = o.Batcher.Run(ctx, units, func(ctx context.Context, idx int, unit domain.ContentUnit) (domain.ContentUnit, []domain.Degradation) {
			return o.renderUnit(ctx, job.ID, idx, unit, plan.VisualConcept, ragRes.Assets)
		})
		degs = append(degs, id...)
	}

	artifact.Units = units
	if err := o.Artifacts.UpdateUnits(ctx, artifact.ID, units, domain.ArtifactStatusFinal); err != nil {
		checkpoint, _ := json.Marshal(artifact)
		return nil, checkpoint, fmt.Errorf("finalize artifact: %w", err)
	}

	return &JobResult{
		ArtifactID:   artifact.ID,
		Plan:         &plan,
		Caption:      draft.Caption,
		Units:        units,
		Degradations: degs,
	}, nil, nil
}

func (o *Orchestrator) processArticle(ctx context.Context, job *domain.Job, brief domain.Brief) (*JobResult, []byte, error) {
	ragRes, degs := o.Retriever.Retrieve(ctx, retrievalQuery(brief))

	plan, pd := o.Strategist.Plan(ctx, brief, ragRes.Text())
	degs = append(degs, pd...)

	article, raw, err := o.Drafter.DraftArticle(ctx, brief, plan, ragRes.Text())
	if err != nil {
		return nil, []byte(raw), err
	}

	markdown, cd := o.Critic.ReviewArticle(ctx, brief, article.Markdown)
	degs = append(degs, cd...)

	html, err := RenderArticleHTML(markdown)
	if err != nil {
		return nil, []byte(markdown), err
	}

	result := &JobResult{
		Plan:            &plan,
		ArticleTitle:    article.Title,
		ArticleMarkdown: markdown,
		ArticleHTML:     html,
	}

	if brief.WantImages {
		header := domain.ApplyBranding([]domain.ContentUnit{{
			Type:          domain.UnitTypeHook,
			Headline:      article.Title,
			TextPlacement: domain.TextClean,
		}})
		unit, id := o.renderUnit(ctx, job.ID, 0, header[0], plan.VisualConcept, ragRes.Assets)
		degs = append(degs, id...)
		result.Units = []domain.ContentUnit{unit}
	}

	result.Degradations = degs
	return result, nil, nil
}

func (o *Orchestrator) processPlan(ctx context.Context, brief domain.Brief) (*JobResult, []byte, error) {
	ragRes, degs := o.Retriever.Retrieve(ctx, retrievalQuery(brief))

	plans, pd := o.Strategist.PlanVariants(ctx, brief, ragRes.Text(), brief.Variants)
	degs = append(degs, pd...)

	return &JobResult{Plans: plans, Degradations: degs}, nil, nil
}

func (o *Orchestrator) processImageOnly(ctx context.Context, job *domain.Job, brief domain.Brief) (*JobResult, []byte, error) {
	units := domain.ApplyBranding([]domain.ContentUnit{{
		Type:          domain.UnitTypeHook,
		Headline:      brief.Headline,
		Body:          brief.Body,
		ImagePrompt:   brief.ImagePrompt,
		TextPlacement: domain.TextBurnedIn,
	}})

	unit, degs := o.renderUnit(ctx, job.ID, 0, units[0], "", nil)
	if unit.ImageRef == "" {
		reason := "image generation failed"
		if len(degs) > 0 {
			reason = degs[len(degs)-1].Reason
		}
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrProviderFailure, reason)
	}

	return &JobResult{Units: []domain.ContentUnit{unit}, Degradations: degs}, nil, nil
}

// renderUnit sources, brands and persists the image for one unit. Asset-mode
// units reuse a visual from the retrieved brand catalog; everything else goes
// through the image model.
func (o *Orchestrator) renderUnit(ctx context.Context, jobID string, idx int, unit domain.ContentUnit, visualConcept string, assets []domain.BrandAsset) (domain.ContentUnit, []domain.Degradation) {
	var (
		payload imagegen.Payload
		degs    []domain.Degradation
	)
	if unit.BackgroundMode == domain.BackgroundAsset {
		var ok bool
		payload, ok = backgroundFromAssets(assets, idx)
		if !ok {
			degs = append(degs, domain.Degradation{
				Stage:  "asset_background",
				Reason: fmt.Sprintf("unit %d: no reusable brand visual, generating instead", idx),
			})
		}
	}
	if payload.Empty() {
		generated, gd := o.Assets.Generate(ctx, jobID, idx, unit, visualConcept)
		degs = append(degs, gd...)
		payload = generated
	}
	if payload.Empty() {
		unit.ImageRef = ""
		return unit, degs
	}

	branded, bd := o.Brander.Apply(ctx, idx, unit, payload)
	degs = append(degs, bd...)

	ref, fd := o.Finisher.Persist(ctx, jobID, idx, branded)
	degs = append(degs, fd...)
	unit.ImageRef = ref
	return unit, degs
}

// backgroundFromAssets picks a catalog visual for an asset-mode unit, cycling
// by position. Logos and badges are overlay material, never backgrounds.
func backgroundFromAssets(assets []domain.BrandAsset, idx int) (imagegen.Payload, bool) {
	usable := make([]domain.BrandAsset, 0, len(assets))
	for _, a := range assets {
		if a.Kind == "logo" || a.Kind == "badge" || a.URL == "" {
			continue
		}
		usable = append(usable, a)
	}
	if len(usable) == 0 {
		return imagegen.Payload{}, false
	}
	asset := usable[idx%len(usable)]
	if payload, ok := imagegen.DecodeDataURL(asset.URL); ok {
		return payload, true
	}
	return imagegen.Payload{URL: asset.URL}, true
}

// RegenerateImages re-runs the image stages for a finalized artifact, capped
// to the highest-priority units. Copy is never touched.
func (o *Orchestrator) RegenerateImages(ctx context.Context, artifactID string) (*domain.Artifact, []domain.Degradation, error) {
	artifact, err := o.Artifacts.GetByID(ctx, artifactID)
	if err != nil {
		return nil, nil, err
	}
	if len(artifact.Units) == 0 {
		return nil, nil, fmt.Errorf("artifact %s has no units", artifactID)
	}

	units := domain.ApplyBranding(artifact.Units)
	selected := selectRegenerationTargets(units, regenerateUnitCap)

	subset := make([]domain.ContentUnit, len(selected))
	for i, idx := range selected {
		subset[i] = units[idx]
		// Regeneration always re-renders, even units that reused a catalog visual.
		subset[i].BackgroundMode = domain.BackgroundGenerate
	}

	keyPrefix := fmt.Sprintf("regen-%s", artifact.ID)
	processed, degs := o.Batcher.Run(ctx, subset, func(ctx context.Context, i int, unit domain.ContentUnit) (domain.ContentUnit, []domain.Degradation) {
		return o.renderUnit(ctx, keyPrefix, selected[i], unit, "", nil)
	})
	for i, idx := range selected {
		// Keep the old ref when regeneration of this unit failed.
		if processed[i].ImageRef != "" {
			units[idx] = processed[i]
		}
	}

	if err := o.Artifacts.UpdateUnits(ctx, artifact.ID, units, domain.ArtifactStatusFinal); err != nil {
		return nil, degs, fmt.Errorf("persist regenerated units: %w", err)
	}
	artifact.Units = units
	artifact.Status = domain.ArtifactStatusFinal
	return artifact, degs, nil
}

// selectRegenerationTargets orders unit indices by priority (first, last,
// hook, cta, remainder) and keeps at most limit of them, in position order.
func selectRegenerationTargets(units []domain.ContentUnit, limit int) []int {
	var order []int
	seen := make(map[int]bool, len(units))
	add := func(i int) {
		if i >= 0 && i < len(units) && !seen[i] {
			seen[i] = true
			order = append(order, i)
		}
	}
	add(0)
	add(len(units) - 1)
	for i, u := range units {
		if u.Type == domain.UnitTypeHook {
			add(i)
		}
	}
	for i, u := range units {
		if u.Type == domain.UnitTypeCTA {
			add(i)
		}
	}
	for i := range units {
		add(i)
	}
	if len(order) > limit {
		order = order[:limit]
	}
	sort.Ints(order)
	return order
}

func retrievalQuery(brief domain.Brief) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{brief.Topic, brief.PainPoint, brief.DesiredOutcome} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
