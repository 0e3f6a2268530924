package rag

// ToolKind enumerates the closed set of retrieval tools. Dispatch happens
// through this enum rather than free-form tool-name strings, so an unknown
// tool is unrepresentable.
type ToolKind int

const (
	ToolKnowledge ToolKind = iota
	ToolIndustryData
	ToolAssets
	ToolProducts
	ToolDeepResearch
)

// toolOrder fixes the execution order; deep research runs first so its
// findings land ahead of internal knowledge in the assembled context.
var toolOrder = []ToolKind{
	ToolDeepResearch,
	ToolKnowledge,
	ToolIndustryData,
	ToolAssets,
	ToolProducts,
}

func (k ToolKind) String() string {
	switch k {
	case ToolKnowledge:
		return "knowledge"
	case ToolIndustryData:
		return "industry_data"
	case ToolAssets:
		return "assets"
	case ToolProducts:
		return "products"
	case ToolDeepResearch:
		return "deep_research"
	default:
		return "unknown"
	}
}
