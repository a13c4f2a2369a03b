package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"sunny-backend/internal/models"
)

type AIService struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket
}

func NewAIService(apiKey, modelName string, concurrentReqs int) (*AIService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AIService{
		client:    client,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (s *AIService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *AIService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *AIService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Complete sends a chat turn to Gemini. The system instruction carries the
// assistant persona and context; history must end with the user message the
// model should answer.
func (s *AIService) Complete(ctx context.Context, system string, history []models.APIMessage) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(history) == 0 {
		return "", fmt.Errorf("history is empty")
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.7)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	chat := model.StartChat()
	for _, msg := range history[:len(history)-1] {
		role := "user"
		if msg.Role == "assistant" || msg.Role == "model" {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(history[len(history)-1].Content))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty response")
	}

	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
