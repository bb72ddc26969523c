package presentation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Caia-Tech/caia-corpus/pkg/corpus"
)

// Renderer turns pair artifacts into pages, statistics and exports
type Renderer struct {
	config *RendererConfig
}

// RendererConfig configures the renderer
type RendererConfig struct {
	DefaultFormat   OutputFormat `json:"default_format"`
	DefaultPageSize int          `json:"default_page_size"`
	MaxPageSize     int          `json:"max_page_size"`
}

// NewRenderer creates a new pair renderer
func NewRenderer(config *RendererConfig) *Renderer {
	if config == nil {
		config = &RendererConfig{
			DefaultFormat:   FormatJSON,
			DefaultPageSize: DefaultPageSize,
			MaxPageSize:     MaxPageSize,
		}
	}
	return &Renderer{config: config}
}

// RenderPage returns one page of pairs. page is 1-based; out of range pages are empty.
func (r *Renderer) RenderPage(artifact string, pairs []corpus.Pair, page, pageSize int) *RenderedPage {
	if pageSize <= 0 {
		pageSize = r.config.DefaultPageSize
	}
	if pageSize > r.config.MaxPageSize {
		pageSize = r.config.MaxPageSize
	}
	if page <= 0 {
		page = 1
	}

	rendered := &RenderedPage{
		Artifact:   artifact,
		Page:       page,
		PageSize:   pageSize,
		TotalPairs: len(pairs),
		TotalPages: (len(pairs) + pageSize - 1) / pageSize,
		Pairs:      make([]RenderedPair, 0, pageSize),
	}

	start := (page - 1) * pageSize
	if start >= len(pairs) {
		return rendered
	}
	end := start + pageSize
	if end > len(pairs) {
		end = len(pairs)
	}
	for i := start; i < end; i++ {
		rendered.Pairs = append(rendered.Pairs, RenderedPair{
			Number:   i + 1,
			Input:    pairs[i].Input,
			Response: pairs[i].Response,
		})
	}
	rendered.HasNext = end < len(pairs)
	return rendered
}

// Statistics computes word count statistics over pairs
func (r *Renderer) Statistics(pairs []corpus.Pair) *PairStatistics {
	stats := &PairStatistics{Pairs: len(pairs)}
	if len(pairs) == 0 {
		return stats
	}

	var inputWords, responseWords int
	for _, p := range pairs {
		in := len(strings.Fields(p.Input))
		out := len(strings.Fields(p.Response))
		inputWords += in
		responseWords += out
		if in == 0 {
			stats.EmptyInputs++
		}
		if out == 0 {
			stats.EmptyResponses++
		}
		if in > stats.MaxInputWords {
			stats.MaxInputWords = in
		}
		if out > stats.MaxResponseWords {
			stats.MaxResponseWords = out
		}
	}
	stats.AvgInputWords = float64(inputWords) / float64(len(pairs))
	stats.AvgResponseWords = float64(responseWords) / float64(len(pairs))
	return stats
}

// Export renders every pair in the requested format
func (r *Renderer) Export(artifact string, pairs []corpus.Pair, format OutputFormat) ([]byte, error) {
	if format == "" {
		format = r.config.DefaultFormat
	}
	switch format {
	case FormatJSON:
		return r.exportJSON(pairs)
	case FormatMarkdown:
		return r.exportMarkdown(artifact, pairs), nil
	case FormatText:
		return r.exportText(pairs), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ContentType returns the HTTP content type of an export format
func ContentType(format OutputFormat) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

func (r *Renderer) exportJSON(pairs []corpus.Pair) ([]byte, error) {
	rendered := make([]RenderedPair, len(pairs))
	for i, p := range pairs {
		rendered[i] = RenderedPair{Number: i + 1, Input: p.Input, Response: p.Response}
	}
	return json.MarshalIndent(rendered, "", "  ")
}

func (r *Renderer) exportMarkdown(artifact string, pairs []corpus.Pair) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", artifact))
	buf.WriteString("| # | Input | Response |\n")
	buf.WriteString("|---|---|---|\n")
	for i, p := range pairs {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s |\n", i+1, escapeCell(p.Input), escapeCell(p.Response)))
	}
	return buf.Bytes()
}

// exportText writes each pair as a two line exchange separated by a blank line
func (r *Renderer) exportText(pairs []corpus.Pair) []byte {
	var buf bytes.Buffer
	for i, p := range pairs {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString("> " + p.Input + "\n")
		buf.WriteString("< " + p.Response + "\n")
	}
	return buf.Bytes()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// humanSize formats a byte count
func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
