package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// declineMarker is the literal a model must return when a question
// cannot be answered from the directory schema.
const declineMarker = "NO_QUERY"

const translateSystemPrompt = `You are a SQL expert. Convert natural language questions about hospital costs and quality into a single PostgreSQL query.

EXACT SCHEMA (use these exact column names):
- providers: provider_id, provider_name, provider_city, provider_state, provider_zip_code
- drgs: drg_id (INTEGER), ms_drg_definition (VARCHAR)
- drg_prices: id, provider_id, drg_id (INTEGER FK), total_discharges, average_covered_charges, average_total_payments, average_medicare_payments
- ratings: id, provider_id, rating (1-10)
- zip_codes: zip_code, latitude, longitude

CRITICAL:
- The column is ms_drg_definition, NOT msr_drg_definition.
- drg_id is INTEGER: write drg_id = 470, not drg_id = '470'.
- Match DRG descriptions with ILIKE: ms_drg_definition ILIKE '%hip%'.
- Join drg_prices to providers via provider_id.

Hints:
- "cheapest" orders by average_covered_charges ascending.
- "DRG 470" filters drg_prices.drg_id = 470.
- "near ZIP 10001" joins providers to zip_codes via provider_zip_code.
- "best rated" orders by AVG(rating) descending.
- Add LIMIT 200 unless the user asks otherwise.

Return exactly one SQL statement as plain text. No markdown, no code fences, no explanations. If the question cannot be answered from this schema, reply with exactly NO_QUERY.`

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
// It implements both Translator and AnswerGenerator.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (c *OpenAIClient) Translate(ctx context.Context, question string) (string, error) {
	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: translateSystemPrompt},
		{Role: "user", Content: strings.TrimSpace(question)},
	})
	if err != nil {
		return "", err
	}

	sqlText := stripMarkdownSQL(content)
	if strings.EqualFold(sqlText, declineMarker) {
		return "", nil
	}
	if sqlText == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sqlText, nil
}

func (c *OpenAIClient) Answer(ctx context.Context, question, sql string, rows []map[string]any) (string, error) {
	if rows == nil {
		rows = []map[string]any{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal result rows: %w", err)
	}

	prompt := fmt.Sprintf(
		"Answer the user's question based strictly on the SQL results.\nQuestion: %s\nSQL: %s\nResults: %s\n",
		question, sql, string(rowsJSON),
	)
	return c.chat(ctx, []chatMessage{{Role: "user", Content: prompt}})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *OpenAIClient) chat(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
