package domain

// UnitType classifies a content unit inside a generated piece.
type UnitType string

const (
	UnitTypeHook    UnitType = "hook"
	UnitTypeContent UnitType = "content"
	UnitTypeCTA     UnitType = "cta"
)

// BackgroundMode selects how a unit's visual is sourced.
type BackgroundMode string

const (
	BackgroundGenerate BackgroundMode = "generate"
	BackgroundAsset    BackgroundMode = "asset"
)

// TextPlacement selects whether copy is rendered into the image or kept off it.
type TextPlacement string

const (
	TextBurnedIn TextPlacement = "burned_in"
	TextClean    TextPlacement = "clean"
)

// MaxUnits caps how many units a single piece may carry.
const MaxUnits = 5

// DefaultLogoPosition is used when the drafter leaves the corner unspecified.
const DefaultLogoPosition = "top-right"

// ContentUnit is one slide/section of a generated piece.
type ContentUnit struct {
	Type           UnitType       `json:"type"`
	Headline       string         `json:"headline"`
	Body           string         `json:"body"`
	BackgroundMode BackgroundMode `json:"background_mode"`
	ImagePrompt    string         `json:"image_prompt,omitempty"`
	TextPlacement  TextPlacement  `json:"text_placement"`
	ShowLogo       bool           `json:"show_logo"`
	ShowISOBadge   bool           `json:"show_iso_badge"`
	LogoPosition   string         `json:"logo_position,omitempty"`
	ImageRef       string         `json:"image_ref,omitempty"`
}

// PlanSection is one outline entry of a generation plan.
type PlanSection struct {
	Tag       string   `json:"tag"`
	Title     string   `json:"title"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// GenerationPlan is the strategist's creative direction for a piece.
type GenerationPlan struct {
	Persona       string        `json:"persona"`
	Angle         string        `json:"angle"`
	VisualConcept string        `json:"visual_concept"`
	Outline       []PlanSection `json:"outline"`
}

// ApplyBranding enforces the branding invariant on a finished set of units:
// the logo appears on the first and last unit, and the certification badge on
// cta-typed units and on the last unit. Whatever the drafter emitted for these
// flags is overridden.
func ApplyBranding(units []ContentUnit) []ContentUnit {
	for i := range units {
		last := i == len(units)-1
		units[i].ShowLogo = i == 0 || last
		units[i].ShowISOBadge = units[i].Type == UnitTypeCTA || last
		if units[i].LogoPosition == "" {
			units[i].LogoPosition = DefaultLogoPosition
		}
	}
	return units
}

// CapUnits trims an oversized set of units down to limit, keeping the first
// hook, the first cta and as many content units as fit, in original order.
func CapUnits(units []ContentUnit, limit int) []ContentUnit {
	if limit <= 0 || len(units) <= limit {
		return units
	}

	hookIdx, ctaIdx := -1, -1
	for i, u := range units {
		if hookIdx < 0 && u.Type == UnitTypeHook {
			hookIdx = i
		}
		if ctaIdx < 0 && u.Type == UnitTypeCTA {
			ctaIdx = i
		}
	}

	keep := make(map[int]bool, limit)
	remaining := limit
	if hookIdx >= 0 {
		keep[hookIdx] = true
		remaining--
	}
	if ctaIdx >= 0 && !keep[ctaIdx] && remaining > 0 {
		keep[ctaIdx] = true
		remaining--
	}
	for i := range units {
		if remaining == 0 {
			break
		}
		if keep[i] {
			continue
		}
		keep[i] = true
		remaining--
	}

	capped := make([]ContentUnit, 0, limit)
	for i, u := range units {
		if keep[i] {
			capped = append(capped, u)
		}
	}
	return capped
}
