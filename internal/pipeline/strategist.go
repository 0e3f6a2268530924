package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/llm"
)

// strategistContextLimit caps how much retrieved context reaches the
// strategist prompt; the drafter gets the full budget instead.
const strategistContextLimit = 800

// Strategist produces the creative direction for a piece: persona, angle,
// visual concept and outline. It degrades to a deterministic default plan on
// model or parse failure and never fails a job.
type Strategist struct {
	LLM    llm.Client
	Logger infra.Logger
}

// Plan asks the model for one generation plan.
func (s *Strategist) Plan(ctx context.Context, brief domain.Brief, contextText string) (domain.GenerationPlan, []domain.Degradation) {
	return s.plan(ctx, brief, contextText, "")
}

// PlanVariants asks for n distinct plans, one call each so a single failure
// only degrades that variant.
func (s *Strategist) PlanVariants(ctx context.Context, brief domain.Brief, contextText string, n int) ([]domain.GenerationPlan, []domain.Degradation) {
	if n <= 0 {
		n = 3
	}
	plans := make([]domain.GenerationPlan, 0, n)
	var degs []domain.Degradation
	for i := 0; i < n; i++ {
		hint := fmt.Sprintf("Variant %d of %d: choose an angle clearly distinct from typical takes on this topic.", i+1, n)
		plan, d := s.plan(ctx, brief, contextText, hint)
		plans = append(plans, plan)
		degs = append(degs, d...)
	}
	return plans, degs
}

func (s *Strategist) plan(ctx context.Context, brief domain.Brief, contextText, variantHint string) (domain.GenerationPlan, []domain.Degradation) {
	var plan domain.GenerationPlan
	err := s.LLM.CompleteStructured(ctx, llm.CompletionRequest{
		System:      "You are a senior content strategist for a healthcare brand. Respond strictly with JSON.",
		Prompt:      s.buildPrompt(brief, contextText, variantHint),
		Temperature: 0.7,
	}, &plan)
	if err != nil || !planUsable(plan) {
		s.Logger.Warn().Err(err).Str("stage", "strategist").Msg("pipeline: strategist degraded to default plan")
		return defaultPlan(brief), []domain.Degradation{{Stage: "strategist", Reason: degradeReason(err)}}
	}
	return plan, nil
}

func (s *Strategist) buildPrompt(brief domain.Brief, contextText, variantHint string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Design a content plan for a %s post.\n", firstNonEmpty(brief.Format, "carousel"))
	fmt.Fprintf(sb, "Topic: %s\nAudience: %s\nPain point: %s\nDesired outcome: %s\n",
		brief.Topic, brief.TargetAudience, brief.PainPoint, brief.DesiredOutcome)
	if len(brief.ProofPoints) > 0 {
		fmt.Fprintf(sb, "Proof points: %s\n", strings.Join(brief.ProofPoints, "; "))
	}
	if brief.CTAAction != "" {
		fmt.Fprintf(sb, "Call to action: %s\n", brief.CTAAction)
	}
	if variantHint != "" {
		sb.WriteString(variantHint)
		sb.WriteString("\n")
	}
	if trimmed := truncateContext(contextText, strategistContextLimit); trimmed != "" {
		fmt.Fprintf(sb, "Reference context:\n%s\n", trimmed)
	}
	sb.WriteString(`Respond as JSON: {"persona":string,"angle":string,"visual_concept":string,"outline":[{"tag":"hook"|"content"|"cta","title":string,"key_points":string[]}]}. Outline has one hook, up to three content sections and one cta.`)
	return sb.String()
}

func planUsable(plan domain.GenerationPlan) bool {
	return len(plan.Outline) > 0
}

// defaultPlan is the deterministic fallback when the strategist cannot be
// reached or returns garbage. Drafting continues with a generic direction.
func defaultPlan(brief domain.Brief) domain.GenerationPlan {
	topic := firstNonEmpty(brief.Topic, "the announced topic")
	return domain.GenerationPlan{
		Persona:       firstNonEmpty(brief.TargetAudience, "professionals following the brand"),
		Angle:         fmt.Sprintf("A practical, evidence-led take on %s", topic),
		VisualConcept: "Clean professional photography with calm lighting and brand colors",
		Outline: []domain.PlanSection{
			{Tag: "hook", Title: fmt.Sprintf("Why %s matters now", topic)},
			{Tag: "content", Title: "What the evidence shows"},
			{Tag: "content", Title: "How to apply it"},
			{Tag: "cta", Title: firstNonEmpty(brief.CTAAction, "Talk to our team")},
		},
	}
}

// truncateContext cuts retrieved context to at most limit bytes without
// splitting a multi-byte rune.
func truncateContext(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func degradeReason(err error) string {
	if err == nil {
		return "unusable payload"
	}
	return err.Error()
}
