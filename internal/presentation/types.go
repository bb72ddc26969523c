package presentation

import (
	"time"
)

// OutputFormat represents the export format
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatText     OutputFormat = "text"
)

// Page size bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// RenderedPair is one numbered pair of a page
type RenderedPair struct {
	Number   int    `json:"number"` // 1-based position in the artifact
	Input    string `json:"input"`
	Response string `json:"response"`
}

// RenderedPage is one page of a pair artifact
type RenderedPage struct {
	Artifact   string         `json:"artifact"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPairs int            `json:"total_pairs"`
	TotalPages int            `json:"total_pages"`
	HasNext    bool           `json:"has_next"`
	Pairs      []RenderedPair `json:"pairs"`
}

// ArtifactSummary describes an artifact in listings
type ArtifactSummary struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	SizeHuman  string    `json:"size_human"`
	ModifiedAt time.Time `json:"modified_at"`
}

// PairStatistics summarises the utterance lengths of an artifact
type PairStatistics struct {
	Pairs            int     `json:"pairs"`
	AvgInputWords    float64 `json:"avg_input_words"`
	AvgResponseWords float64 `json:"avg_response_words"`
	MaxInputWords    int     `json:"max_input_words"`
	MaxResponseWords int     `json:"max_response_words"`
	EmptyInputs      int     `json:"empty_inputs"`
	EmptyResponses   int     `json:"empty_responses"`
}
