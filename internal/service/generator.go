package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	generationModelName = "gemini-1.5-flash-latest"

	questionSystemInstruction = "You are an exam preparation assistant. Given a topic, produce exactly " +
		"5 multiple-choice questions with four options each, numbered Q1-Q5, followed by 5 descriptive " +
		"mains-style questions numbered M1-M5. Put the MCQ answer key at the end under an 'Answers' " +
		"heading, and keep everything in plain text without markdown formatting. Do not add commentary " +
		"before or after the question set."
)

// Generator produces a practice question set for a topic. Implementations are
// expected to be slow (tens of seconds); callers own the timeout.
type Generator interface {
	GenerateQuestions(ctx context.Context, topic string) (string, error)
}

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func (g *GeminiGenerator) GenerateQuestions(ctx context.Context, topic string) (string, error) {
	model := g.client.GenerativeModel(generationModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(questionSystemInstruction)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(
		fmt.Sprintf("Generate practice questions on the topic: %q", topic),
	))
	if err != nil {
		return "", fmt.Errorf("gemini generation request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini returned a non-text response")
	}

	return out.String(), nil
}
