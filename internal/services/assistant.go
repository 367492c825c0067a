package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/agendia-app/agendia-backend/internal/models"
)

// defaultSystemPrompt is used when a company has not configured its own
// receptionist prompt
const defaultSystemPrompt = `Você é a recepcionista virtual de uma empresa de serviços.
Ajude o cliente a agendar um horário: pergunte o serviço desejado, o profissional,
a data e o horário. Quando tiver todos os dados, envie um resumo de confirmação
neste formato exato e peça para o cliente responder "sim":

✅ Cliente: <nome>
👨 Profissional: <nome>
🔧 Serviço: <nome>
⏰ <AAAA-MM-DD> <HH:MM>
💰 R$<valor>`

// Assistant wraps the OpenAI chat completion API for the conversational
// receptionist. Model, temperature and prompt come from the company row.
type Assistant struct {
	client       *openai.Client
	apiKey       string
	defaultModel string
}

// NewAssistant creates the OpenAI-backed assistant
func NewAssistant(apiKey, defaultModel string) (*Assistant, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &Assistant{
		client:       openai.NewClient(apiKey),
		apiKey:       apiKey,
		defaultModel: defaultModel,
	}, nil
}

// WithBaseURL overrides the API URL (for testing)
func (a *Assistant) WithBaseURL(baseURL string) *Assistant {
	if baseURL != "" {
		cfg := openai.DefaultConfig(a.apiKey)
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
		a.client = openai.NewClientWithConfig(cfg)
	}
	return a
}

// Reply produces the assistant's next turn for a conversation
func (a *Assistant) Reply(ctx context.Context, company *models.Company, history []*models.Message) (string, error) {
	prompt := company.AIPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultSystemPrompt
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt,
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	model := company.AIModel
	if model == "" {
		model = a.defaultModel
	}
	maxTokens := company.AIMaxTokens
	if maxTokens == 0 {
		maxTokens = 600
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(company.AITemperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractSummary asks the model for a JSON rendition of a confirmation
// summary. This is the structured path that replaces regex extraction once
// the prompt contract is in place; the regex parser stays as the
// compatibility fallback.
func (a *Assistant) ExtractSummary(ctx context.Context, summaryText string) (*ConfirmationSummary, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.defaultModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: `Extraia os dados do resumo de agendamento e responda somente com JSON:
{"client_name": "", "professional_name": "", "service_name": "", "date": "AAAA-MM-DD", "time": "HH:MM", "price": 0}`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: summaryText,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summary extraction failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("summary extraction returned no choices")
	}

	var out struct {
		ClientName       string  `json:"client_name"`
		ProfessionalName string  `json:"professional_name"`
		ServiceName      string  `json:"service_name"`
		Date             string  `json:"date"`
		Time             string  `json:"time"`
		Price            float64 `json:"price"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("summary extraction returned invalid JSON: %w", err)
	}
	return &ConfirmationSummary{
		ClientName:       out.ClientName,
		ProfessionalName: out.ProfessionalName,
		ServiceName:      out.ServiceName,
		Date:             out.Date,
		Time:             out.Time,
		Price:            out.Price,
	}, nil
}
