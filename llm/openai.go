package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

const analysisPrompt = `Analyze this meeting transcript and extract the following information in JSON format:

Transcript:
%s

Please provide:
1. Tasks: List of actionable items with title, assignee (if mentioned), due date (if mentioned), priority, and description
2. Decisions: Key decisions made during the meeting
3. Risks: Any risks, concerns, or blockers mentioned
4. Follow-ups: Items that need follow-up or further discussion
5. Summary: A brief 2-3 sentence summary of the meeting

Return ONLY a valid JSON object with this structure:
{
  "tasks": [
    {
      "title": "string",
      "assignee": "string",
      "due_date": "string",
      "priority": "High|Medium|Low",
      "description": "string"
    }
  ],
  "decisions": ["string"],
  "risks": ["string"],
  "follow_ups": ["string"],
  "summary": "string"
}`

// OpenAIAnalyzer asks a chat model to extract meeting insights and
// decodes the JSON it returns.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAIAnalyzer(apiKey string, logger *log.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
		logger: logger,
	}
}

func (a *OpenAIAnalyzer) Analyze(
	ctx context.Context,
	transcript string,
) (*Analysis, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:     a.model,
			MaxTokens: 2000,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf(analysisPrompt, transcript),
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	content := resp.Choices[0].Message.Content
	analysis, err := parseAnalysis(content)
	if err != nil {
		return nil, err
	}

	a.logger.Debug(
		"mind",
		"tasks", len(analysis.Tasks),
		"decisions", len(analysis.Decisions),
	)
	return analysis, nil
}

// parseAnalysis decodes a model reply into an Analysis, tolerating
// replies wrapped in markdown code fences.
func parseAnalysis(content string) (*Analysis, error) {
	content = stripCodeFences(content)

	var analysis Analysis
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	return &analysis, nil
}

func stripCodeFences(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
