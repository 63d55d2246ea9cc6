// Package ecotips serves sustainability advice for residents.
package ecotips

import (
	"context"
	"strings"

	"github.com/upb/smart-city-assistant/services"
)

// TipGenerator writes tips for a topic; it never fails
type TipGenerator interface {
	GenerateTip(ctx context.Context, topic string) string
}

// Tips is a generated answer for a topic
type Tips struct {
	Topic  string `json:"topic"`
	Tips   string `json:"tips"`
	Status string `json:"status"`
}

// Topic is a suggested subject for tips
type Topic struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var popularTopics = []Topic{
	{"Energy Conservation", "⚡", "Tips for reducing energy consumption"},
	{"Water Management", "💧", "Water saving and conservation techniques"},
	{"Waste Reduction", "♻️", "Reduce, reuse, and recycle strategies"},
	{"Sustainable Transport", "🚲", "Eco-friendly transportation options"},
	{"Green Building", "🏢", "Sustainable construction and living"},
	{"Air Quality", "🌿", "Improving indoor and outdoor air quality"},
	{"Urban Gardening", "🌱", "Growing plants in urban environments"},
	{"Climate Action", "🌍", "Individual actions for climate change"},
}

// Service generates eco tips
type Service struct {
	generator TipGenerator
}

// NewService creates a new eco tips service
func NewService(generator TipGenerator) *Service {
	return &Service{generator: generator}
}

// Generate returns tips for topic
func (s *Service) Generate(ctx context.Context, topic string) (*Tips, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, services.NewValidation("Topic cannot be empty")
	}
	return &Tips{
		Topic:  topic,
		Tips:   s.generator.GenerateTip(ctx, topic),
		Status: "success",
	}, nil
}

// PopularTopics returns the suggested topics
func PopularTopics() []Topic {
	out := make([]Topic, len(popularTopics))
	copy(out, popularTopics)
	return out
}
