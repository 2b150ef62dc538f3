package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/swifty-uz/taskbot/internal/config"
	"github.com/swifty-uz/taskbot/internal/domain"
)

const analysisSystemPrompt = `Ты — помощник руководителя, который превращает сообщения в структурированные задачи.
Проанализируй сообщение и верни СТРОГО один JSON-объект без пояснений:
{
  "title": "краткое название задачи (до 50 символов)",
  "description": "подробное описание задачи",
  "priority": "высокий | средний | низкий",
  "category": "категория задачи одним словом",
  "needsMoreInfo": false,
  "assigneeInfo": {
    "mentioned": true/false,
    "name": "имя исполнителя, если упомянут",
    "email": "email исполнителя, если упомянут",
    "dueDate": "срок в формате YYYY-MM-DD, если упомянут, иначе null",
    "searchTerms": ["слова для поиска исполнителя"]
  }
}
Если из сообщения невозможно составить задачу, верни {"needsMoreInfo": true}.`

// Analyzer turns free text into a structured task proposal and transcribes
// voice messages, through an OpenAI-compatible API.
type Analyzer struct {
	client       *openai.Client
	model        string
	whisperModel string
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	clientCfg := openai.DefaultConfig(cfg.AnalysisAPIKey)
	if cfg.AnalysisBaseURL != "" {
		clientCfg.BaseURL = cfg.AnalysisBaseURL
	}
	return &Analyzer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.AnalysisModel,
		whisperModel: cfg.WhisperModel,
	}
}

type analysisResult struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Priority      string `json:"priority"`
	Category      string `json:"category"`
	NeedsMoreInfo bool   `json:"needsMoreInfo"`
	AssigneeInfo  struct {
		Mentioned   bool     `json:"mentioned"`
		Name        string   `json:"name"`
		Email       string   `json:"email"`
		DueDate     string   `json:"dueDate"`
		SearchTerms []string `json:"searchTerms"`
	} `json:"assigneeInfo"`
}

// Analyze extracts a task proposal from a message. The employee roster is
// passed to the model so assignee mentions resolve to known people. Returns
// domain.ErrEmptyAnalysis when the model cannot produce a usable task.
func (a *Analyzer) Analyze(ctx context.Context, text string, employees []domain.Employee) (*domain.TaskProposal, error) {
	ctx, cancel := context.WithTimeout(ctx, config.AnalysisTimeout)
	defer cancel()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt + rosterPrompt(employees)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrEmptyAnalysis
	}

	raw := extractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, domain.ErrEmptyAnalysis
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	if result.NeedsMoreInfo || strings.TrimSpace(result.Title) == "" {
		return nil, domain.ErrEmptyAnalysis
	}

	proposal := &domain.TaskProposal{
		Title:       clampTitle(strings.TrimSpace(result.Title)),
		Description: strings.TrimSpace(result.Description),
		Priority:    result.Priority,
		Category:    result.Category,
		Assignee: domain.AssigneeMention{
			Mentioned:   result.AssigneeInfo.Mentioned,
			Name:        strings.TrimSpace(result.AssigneeInfo.Name),
			Email:       strings.TrimSpace(result.AssigneeInfo.Email),
			SearchTerms: result.AssigneeInfo.SearchTerms,
		},
	}
	if due, err := ParseDueDate(result.AssigneeInfo.DueDate); err == nil {
		proposal.Assignee.DueDate = due
	}
	return proposal, nil
}

// Transcribe converts a voice recording to text.
func (a *Analyzer) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.AnalysisTimeout)
	defer cancel()

	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.whisperModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe voice: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// clampTitle trims a title the model made too long despite the prompt.
func clampTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= config.MaxTitleLen {
		return title
	}
	return strings.TrimSpace(string(runes[:config.MaxTitleLen-1])) + "…"
}

func rosterPrompt(employees []domain.Employee) string {
	if len(employees) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nЗарегистрированные сотрудники:\n")
	for _, e := range employees {
		fmt.Fprintf(&b, "- %s (%s", e.Name, e.Email)
		if e.Position != "" {
			fmt.Fprintf(&b, ", %s", e.Position)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// extractJSON pulls the first JSON object out of a model reply, tolerating
// markdown code fences and prose around it.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```"); i >= 0 {
		content = content[i+3:]
		content = strings.TrimPrefix(content, "json")
		if j := strings.Index(content, "```"); j >= 0 {
			content = content[:j]
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02.01.2006",
	"2006-01-02 15:04",
}

// ParseDueDate parses a due date in one of the accepted layouts. Empty and
// "null" input yield (nil, nil).
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Date-only input means end of that working day.
			if layout == "2006-01-02" || layout == "02.01.2006" {
				t = t.Add(18 * time.Hour)
			}
			return &t, nil
		}
	}
	return nil, domain.ErrInvalidDueDate
}
