package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"minuted.app/llm"
)

var exportAnalysis = llm.Analysis{
	Tasks: []llm.Task{
		{Title: "Ship the release", Assignee: "Dana", DueDate: "2026-09-05", Priority: "High"},
		{Title: "Write the postmortem", Assignee: "team", DueDate: "", Priority: "Low"},
	},
	Summary: "Release planning.",
}

func postExport(t *testing.T, url string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]any{"analysis": exportAnalysis})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestExportJira(t *testing.T) {
	t.Run("CreatesOneIssuePerTask", func(t *testing.T) {
		var issues []map[string]any
		jira := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/api/3/issue" {
				t.Errorf("path = %q", r.URL.Path)
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "pm@acme.test" || pass != "jira-token" {
				t.Errorf("basic auth = %q %q", user, pass)
			}
			var payload struct {
				Fields map[string]any `json:"fields"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode issue: %v", err)
			}
			issues = append(issues, payload.Fields)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"key":"PROJ-%d"}`, len(issues))
		}))
		defer jira.Close()

		srv, _ := newTestAPIWithConfig(t, stubAnalyzer{}, Config{
			Jira: JiraConfig{URL: jira.URL, Email: "pm@acme.test", APIToken: "jira-token"},
		})

		resp := postExport(t, srv.URL+"/api/export/jira")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got struct {
			Success bool     `json:"success"`
			Message string   `json:"message"`
			Issues  []string `json:"issues"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !got.Success || got.Message != "Created 2 issues in Jira" {
			t.Errorf("response = %+v", got)
		}
		if len(got.Issues) != 2 || got.Issues[0] != "PROJ-1" || got.Issues[1] != "PROJ-2" {
			t.Errorf("issues = %v", got.Issues)
		}

		if len(issues) != 2 {
			t.Fatalf("jira received %d issues, want 2", len(issues))
		}
		first := issues[0]
		if first["summary"] != "Ship the release" {
			t.Errorf("summary = %v", first["summary"])
		}
		if pr, _ := first["priority"].(map[string]any); pr["name"] != "Highest" {
			t.Errorf("priority = %v, want Highest", first["priority"])
		}
	})

	t.Run("RejectedIssueSkipped", func(t *testing.T) {
		calls := 0
		jira := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"key":"PROJ-9"}`)
		}))
		defer jira.Close()

		srv, _ := newTestAPIWithConfig(t, stubAnalyzer{}, Config{
			Jira: JiraConfig{URL: jira.URL, Email: "pm@acme.test", APIToken: "jira-token"},
		})

		resp := postExport(t, srv.URL+"/api/export/jira")
		var got struct {
			Issues []string `json:"issues"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got.Issues) != 1 || got.Issues[0] != "PROJ-9" {
			t.Errorf("issues = %v, want the one accepted key", got.Issues)
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		srv, _ := newTestAPI(t, stubAnalyzer{})
		resp := postExport(t, srv.URL+"/api/export/jira")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestExportNotion(t *testing.T) {
	t.Run("CreatesOnePagePerTask", func(t *testing.T) {
		pages := 0
		notion := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer notion-token" {
				t.Errorf("authorization = %q", got)
			}
			if got := r.Header.Get("Notion-Version"); got != notionAPIVersion {
				t.Errorf("notion version = %q", got)
			}
			var payload struct {
				Parent struct {
					DatabaseID string `json:"database_id"`
				} `json:"parent"`
				Properties map[string]any `json:"properties"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode page: %v", err)
			}
			if payload.Parent.DatabaseID != "db-1" {
				t.Errorf("database_id = %q", payload.Parent.DatabaseID)
			}
			pages++
			fmt.Fprintf(w, `{"id":"page-%d"}`, pages)
		}))
		defer notion.Close()

		srv, _ := newTestAPIWithConfig(t, stubAnalyzer{}, Config{
			Notion: NotionConfig{APIToken: "notion-token", DatabaseID: "db-1", BaseURL: notion.URL},
		})

		resp := postExport(t, srv.URL+"/api/export/notion")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got struct {
			Pages []string `json:"pages"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got.Pages) != 2 || got.Pages[0] != "page-1" {
			t.Errorf("pages = %v", got.Pages)
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		srv, _ := newTestAPI(t, stubAnalyzer{})
		resp := postExport(t, srv.URL+"/api/export/notion")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestExportTrello(t *testing.T) {
	t.Run("CreatesOneCardPerTask", func(t *testing.T) {
		var cards []map[string]any
		trello := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var card map[string]any
			if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
				t.Errorf("decode card: %v", err)
			}
			cards = append(cards, card)
			fmt.Fprintf(w, `{"id":"card-%d"}`, len(cards))
		}))
		defer trello.Close()

		srv, _ := newTestAPIWithConfig(t, stubAnalyzer{}, Config{
			Trello: TrelloConfig{
				APIKey:   "trello-key",
				APIToken: "trello-token",
				BoardID:  "board-1",
				ListID:   "list-1",
				BaseURL:  trello.URL,
			},
		})

		resp := postExport(t, srv.URL+"/api/export/trello")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var got struct {
			Cards []string `json:"cards"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(got.Cards) != 2 {
			t.Fatalf("cards = %v, want 2", got.Cards)
		}

		first := cards[0]
		if first["idList"] != "list-1" || first["key"] != "trello-key" || first["token"] != "trello-token" {
			t.Errorf("card = %v", first)
		}
		if first["due"] != "2026-09-05" {
			t.Errorf("due = %v", first["due"])
		}
		if _, present := cards[1]["due"]; present {
			t.Error("card without a due date should omit the field")
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		srv, _ := newTestAPI(t, stubAnalyzer{})
		resp := postExport(t, srv.URL+"/api/export/trello")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}
