// Package policy summarizes municipal policy documents for residents.
package policy

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/upb/smart-city-assistant/services"
	"go.uber.org/zap"
)

// Summary styles
const (
	StyleCitizen   = "citizen-friendly"
	StyleTechnical = "technical"
	StyleExecutive = "executive"
)

// MaxUploadBytes caps an uploaded policy file
const MaxUploadBytes = 1 << 20

var stylePrefixes = map[string]string{
	StyleExecutive: "Provide an executive summary focusing on key decisions and impacts:",
	StyleTechnical: "Provide a technical summary focusing on implementation details:",
}

const citizenPrefix = "Summarize in simple, citizen-friendly language:"

// Summarizer condenses text; it never fails
type Summarizer interface {
	SummarizeText(ctx context.Context, text string) string
}

// Summary is the outcome of a summarization request
type Summary struct {
	OriginalLength int    `json:"original_length"`
	Summary        string `json:"summary"`
	SummaryType    string `json:"summary_type"`
	Status         string `json:"status"`
}

// Category is one of the policy areas shown to residents
type Category struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var categories = []Category{
	{"Environmental", "🌿", "Climate and environmental policies"},
	{"Transportation", "🚌", "Public transport and mobility"},
	{"Housing", "🏠", "Urban planning and housing policies"},
	{"Energy", "⚡", "Energy efficiency and renewable resources"},
	{"Waste Management", "♻️", "Waste reduction and recycling"},
	{"Water Management", "💧", "Water conservation and distribution"},
	{"Public Health", "🏥", "Health and safety regulations"},
	{"Economic Development", "💼", "Business and economic policies"},
}

// Service handles policy summarization
type Service struct {
	summarizer Summarizer
	logger     *zap.Logger
}

// NewService creates a new policy service
func NewService(summarizer Summarizer, logger *zap.Logger) *Service {
	return &Service{summarizer: summarizer, logger: logger}
}

// PromptFor prefixes text with the instruction for style
func PromptFor(style, text string) string {
	prefix, ok := stylePrefixes[style]
	if !ok {
		prefix = citizenPrefix
	}
	return prefix + "\n\n" + text
}

// Summarize condenses text in the requested style. An empty style means
// citizen-friendly; unknown styles are summarized citizen-friendly too.
func (s *Service) Summarize(ctx context.Context, text, style string) (*Summary, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.NewValidation("Policy text cannot be empty")
	}
	if style == "" {
		style = StyleCitizen
	}

	summary := s.summarizer.SummarizeText(ctx, PromptFor(style, text))

	s.logger.Debug("policy summarized",
		zap.String("summary_type", style),
		zap.Int("original_length", utf8.RuneCountInString(text)))

	return &Summary{
		OriginalLength: utf8.RuneCountInString(text),
		Summary:        summary,
		SummaryType:    style,
		Status:         "success",
	}, nil
}

// SummarizeFile summarizes an uploaded document. Only plain text is read.
func (s *Service) SummarizeFile(ctx context.Context, filename string, content []byte, style string) (*Summary, error) {
	if filename == "" {
		return nil, services.NewValidation("Uploaded file must have a name")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
	case ".pdf", ".docx":
		return nil, services.NewValidation("Only .txt files are currently supported")
	default:
		return nil, services.NewValidation("Only .txt, .pdf, and .docx files are supported")
	}

	if len(content) > MaxUploadBytes {
		return nil, services.NewValidation("File is too large")
	}
	if !utf8.Valid(content) {
		return nil, services.NewValidation("File must be UTF-8 encoded text")
	}

	return s.Summarize(ctx, string(content), style)
}

// Categories returns the policy areas
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
