package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"minuted.app/llm"
)

const (
	notionBaseURL    = "https://api.notion.com/v1/pages"
	notionAPIVersion = "2022-06-28"
	trelloBaseURL    = "https://api.trello.com/1/cards"
)

// JiraConfig holds credentials for the Jira Cloud REST API. URL is the
// site base, e.g. https://acme.atlassian.net.
type JiraConfig struct {
	URL        string
	Email      string
	APIToken   string
	ProjectKey string
}

func (c JiraConfig) configured() bool {
	return c.URL != "" && c.Email != "" && c.APIToken != ""
}

// NotionConfig holds credentials for the Notion pages API. BaseURL is
// only overridden in tests.
type NotionConfig struct {
	APIToken   string
	DatabaseID string
	BaseURL    string
}

func (c NotionConfig) configured() bool {
	return c.APIToken != "" && c.DatabaseID != ""
}

// TrelloConfig holds credentials for the Trello cards API. BaseURL is
// only overridden in tests.
type TrelloConfig struct {
	APIKey   string
	APIToken string
	BoardID  string
	ListID   string
	BaseURL  string
}

func (c TrelloConfig) configured() bool {
	return c.APIKey != "" && c.APIToken != "" && c.BoardID != "" && c.ListID != ""
}

type exportRequest struct {
	Analysis llm.Analysis `json:"analysis"`
}

func (h *Handler) decodeExport(w http.ResponseWriter, r *http.Request) (exportRequest, bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return req, false
	}
	return req, true
}

func (h *Handler) handleExportJira(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Jira
	if !cfg.configured() {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("Jira credentials not configured"))
		return
	}
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	keys, err := h.exportJira(r.Context(), cfg, req.Analysis.Tasks)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, fmt.Errorf("Jira export failed: %w", err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Created %d issues in Jira", len(keys)),
		"issues":  keys,
	})
}

// jiraPriority maps our task priorities onto Jira's scheme.
func jiraPriority(p string) string {
	switch p {
	case "High":
		return "Highest"
	case "Low":
		return "Low"
	default:
		return "Medium"
	}
}

func (h *Handler) exportJira(
	ctx context.Context,
	cfg JiraConfig,
	tasks []llm.Task,
) ([]string, error) {
	project := cfg.ProjectKey
	if project == "" {
		project = "PROJ"
	}

	created := []string{}
	for _, task := range tasks {
		description := task.Description
		if description == "" {
			description = fmt.Sprintf(
				"Task from meeting on %s",
				time.Now().Format("2006-01-02"),
			)
		}
		payload := map[string]any{
			"fields": map[string]any{
				"project":     map[string]string{"key": project},
				"summary":     task.Title,
				"description": description,
				"issuetype":   map[string]string{"name": "Task"},
				"priority":    map[string]string{"name": jiraPriority(task.Priority)},
			},
		}

		body, status, err := h.postJSON(ctx, cfg.URL+"/rest/api/3/issue", payload, func(req *http.Request) {
			req.SetBasicAuth(cfg.Email, cfg.APIToken)
			req.Header.Set("Accept", "application/json")
		})
		if err != nil {
			return nil, err
		}
		if status != http.StatusCreated {
			h.logger.Warn("jira rejected issue", "status", status, "title", task.Title)
			continue
		}

		var issue struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(body, &issue); err != nil {
			return nil, fmt.Errorf("decode jira response: %w", err)
		}
		created = append(created, issue.Key)
	}
	return created, nil
}

func (h *Handler) handleExportNotion(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Notion
	if !cfg.configured() {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("Notion credentials not configured"))
		return
	}
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	pages, err := h.exportNotion(r.Context(), cfg, req.Analysis.Tasks)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, fmt.Errorf("Notion export failed: %w", err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Created %d pages in Notion", len(pages)),
		"pages":   pages,
	})
}

func notionText(content string) []map[string]any {
	return []map[string]any{{"text": map[string]string{"content": content}}}
}

func (h *Handler) exportNotion(
	ctx context.Context,
	cfg NotionConfig,
	tasks []llm.Task,
) ([]string, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = notionBaseURL
	}

	created := []string{}
	for _, task := range tasks {
		payload := map[string]any{
			"parent": map[string]string{"database_id": cfg.DatabaseID},
			"properties": map[string]any{
				"Name":     map[string]any{"title": notionText(task.Title)},
				"Assignee": map[string]any{"rich_text": notionText(task.Assignee)},
				"Due Date": map[string]any{"rich_text": notionText(task.DueDate)},
				"Priority": map[string]any{"select": map[string]string{"name": task.Priority}},
				"Status":   map[string]any{"select": map[string]string{"name": "To Do"}},
			},
		}

		body, status, err := h.postJSON(ctx, baseURL, payload, func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.APIToken)
			req.Header.Set("Notion-Version", notionAPIVersion)
		})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			h.logger.Warn("notion rejected page", "status", status, "title", task.Title)
			continue
		}

		var page struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode notion response: %w", err)
		}
		created = append(created, page.ID)
	}
	return created, nil
}

func (h *Handler) handleExportTrello(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Trello
	if !cfg.configured() {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf(
			"Trello credentials not configured. Set TRELLO_API_KEY, TRELLO_API_TOKEN, TRELLO_BOARD_ID, and TRELLO_LIST_ID"))
		return
	}
	req, ok := h.decodeExport(w, r)
	if !ok {
		return
	}

	cards, err := h.exportTrello(r.Context(), cfg, req.Analysis.Tasks)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, fmt.Errorf("Trello export failed: %w", err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Created %d cards in Trello", len(cards)),
		"cards":   cards,
	})
}

func (h *Handler) exportTrello(
	ctx context.Context,
	cfg TrelloConfig,
	tasks []llm.Task,
) ([]string, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = trelloBaseURL
	}

	created := []string{}
	for _, task := range tasks {
		payload := map[string]any{
			"idList": cfg.ListID,
			"name":   task.Title,
			"desc": fmt.Sprintf(
				"Assignee: %s\nDue Date: %s\nPriority: %s\n\n%s",
				task.Assignee, task.DueDate, task.Priority, task.Description,
			),
			"key":   cfg.APIKey,
			"token": cfg.APIToken,
		}
		if task.DueDate != "" {
			payload["due"] = task.DueDate
		}

		body, status, err := h.postJSON(ctx, baseURL, payload, nil)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			h.logger.Warn("trello rejected card", "status", status, "title", task.Title)
			continue
		}

		var card struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &card); err != nil {
			return nil, fmt.Errorf("decode trello response: %w", err)
		}
		created = append(created, card.ID)
	}
	return created, nil
}

// postJSON does one JSON POST and returns the response body and status.
// decorate, when set, adds per-service auth headers before sending.
func (h *Handler) postJSON(
	ctx context.Context,
	url string,
	payload any,
	decorate func(*http.Request),
) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
