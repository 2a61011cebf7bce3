package groq

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"UrbanScout/pkg/response"
)

// IGroq is the report-writing LLM. Groq exposes an OpenAI-compatible API, so
// the client is the go-openai one pointed at their endpoint.
type IGroq interface {
	GenerateReport(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = `You are an expert urban planning and public works analyst. You review computer vision detection data from a street view image and identify potential public infrastructure issues.

Focus specifically on issues related to:
- Road and sidewalk maintenance (e.g., potholes, cracks, faded road markings)
- Signage and traffic light visibility or obstruction
- Drainage issues or clogged gutters
- Pedestrian safety hazards
- Vegetation overgrowth obstructing paths or signs

Respond with ONLY a JSON object, no extra text, in this exact shape:
{"summary": "<one-sentence overall summary>", "issues": [{"type": "<snake_case issue name>", "severity": "Low|Medium|High", "description": "<1-2 sentence description and impact>"}]}

If no relevant issues are found, return an empty issues array and say so in the summary.`

type groqService struct {
	client *openai.Client
	model  string
}

func New() IGroq {
	apiKey := os.Getenv("GROQ_API_KEY")

	baseURL := os.Getenv("GROQ_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}

	model := os.Getenv("GROQ_MODEL")
	if model == "" {
		model = "llama-3.1-8b-instant"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &groqService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *groqService) GenerateReport(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			// Low temperature for factual, deterministic reporting.
			Temperature: 0.1,
			MaxTokens:   800,
		},
	)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
			return "", response.NewError(apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("groq API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from groq")
	}

	return resp.Choices[0].Message.Content, nil
}
