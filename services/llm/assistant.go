package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

const assistantSystemPrompt = "You are a helpful assistant for a smart city platform. " +
	"Provide informative, concise answers about urban sustainability, governance, and smart city technologies."

// Fallback texts returned when generation yields nothing
const (
	FallbackAnswer  = "I'm sorry, I couldn't process your request at the moment."
	FallbackSummary = "Unable to generate summary."
	FallbackReport  = "Unable to generate report."
)

// Token budgets per task
const (
	answerMaxTokens  = 500
	summaryMaxTokens = 300
	tipMaxTokens     = 200
	reportMaxTokens  = 800
)

// TextGenerator produces text for a prompt; ok=false means no text
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, bool)
}

// Assistant wraps a TextGenerator with the platform's prompt templates.
// Its methods never fail; they fall back to canned text instead.
type Assistant struct {
	generator TextGenerator
}

// NewAssistant creates an assistant over generator
func NewAssistant(generator TextGenerator) *Assistant {
	return &Assistant{generator: generator}
}

// AnswerQuestion answers a free-form citizen question
func (a *Assistant) AnswerQuestion(ctx context.Context, question string) string {
	prompt := fmt.Sprintf("%s\n\nUser: %s\nAssistant:", assistantSystemPrompt, question)
	return a.generateOr(ctx, prompt, answerMaxTokens, FallbackAnswer)
}

// SummarizeText summarizes a policy document
func (a *Assistant) SummarizeText(ctx context.Context, text string) string {
	prompt := fmt.Sprintf("Summarize the following policy document in a clear, citizen-friendly format:\n\n%s\n\nSummary:", text)
	return a.generateOr(ctx, prompt, summaryMaxTokens, FallbackSummary)
}

// GenerateTip produces eco-friendly tips for topic
func (a *Assistant) GenerateTip(ctx context.Context, topic string) string {
	prompt := fmt.Sprintf("Generate 3 practical, actionable eco-friendly tips related to \"%s\" for city residents:\n\nTips:", topic)
	return a.generateOr(ctx, prompt, tipMaxTokens, FallbackTip(topic))
}

// GenerateCityReport writes a sustainability report from KPI data
func (a *Assistant) GenerateCityReport(ctx context.Context, city string, kpis interface{}) string {
	data, err := json.MarshalIndent(kpis, "", "  ")
	if err != nil {
		return FallbackReport
	}
	prompt := fmt.Sprintf("Generate a comprehensive sustainability report for %s based on the following KPI data:\n\n%s\n\nReport:", city, data)
	return a.generateOr(ctx, prompt, reportMaxTokens, FallbackReport)
}

// FallbackTip is the canned tip text for topic
func FallbackTip(topic string) string {
	return fmt.Sprintf("Here are some general tips for %s: reduce consumption, reuse materials, and recycle properly.", topic)
}

func (a *Assistant) generateOr(ctx context.Context, prompt string, maxTokens int, fallback string) string {
	if text, ok := a.generator.Generate(ctx, prompt, maxTokens); ok && text != "" {
		return text
	}
	return fallback
}
