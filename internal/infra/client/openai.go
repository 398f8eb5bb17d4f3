package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

const examGroupingPrompt = `Você é um assistente que organiza resultados de exames laboratoriais.
Receba o texto bruto extraído de um PDF de exames e devolva um objeto JSON
agrupando os resultados por categoria de exame (hemograma, bioquímica,
hormônios, urina, outros). Inclua nome do exame, valor, unidade e valor de
referência quando presentes. Responda apenas com o JSON.`

// OpenAIClient calls a chat-completions endpoint to group extracted exam
// text by category. Implements port.ExamGrouper.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewOpenAIClient creates an LLM client. An empty apiKey is allowed at
// construction; calls fail with ErrNotConfigured.
func NewOpenAIClient(httpClient *http.Client, baseURL, apiKey, model string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		cb:         cb,
		logger:     logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage domain.TokenUsage `json:"usage"`
}

// GroupExamText sends the extracted text to the LLM and parses the JSON it
// returns. Fails fast with ErrNotConfigured when no API key is set.
func (c *OpenAIClient) GroupExamText(ctx context.Context, text string) (map[string]any, domain.TokenUsage, error) {
	ctx, span := tracer.Start(ctx, "OpenAIClient.GroupExamText")
	defer span.End()

	var usage domain.TokenUsage

	if c.apiKey == "" {
		return nil, usage, &domain.ErrNotConfigured{Setting: "OPENAI_API_KEY"}
	}

	result, err := c.cb.Execute(func() (any, error) {
		reqBody := chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: examGroupingPrompt},
				{Role: "user", Content: text},
			},
			ResponseFormat: &respFormat{Type: "json_object"},
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBody))
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, err
		}
		return &parsed, nil
	})
	if err != nil {
		return nil, usage, wrapErr("openai", "POST /v1/chat/completions", err)
	}

	parsed := result.(*chatResponse)
	usage = parsed.Usage

	if len(parsed.Choices) == 0 {
		return nil, usage, &domain.ErrExternalService{Service: "openai", Err: fmt.Errorf("empty choices in response")}
	}

	grouped := map[string]any{}
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &grouped); err != nil {
		c.logger.Warn("openai: model returned non-JSON content", zap.Error(err))
		return nil, usage, &domain.ErrExternalService{Service: "openai", Err: fmt.Errorf("model returned unparseable content: %w", err)}
	}
	return grouped, usage, nil
}
