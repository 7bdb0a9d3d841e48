package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"minuted.app/llm"
)

// SMTPConfig holds the outgoing mail account for summary emails.
type SMTPConfig struct {
	Server   string
	Port     int
	User     string
	Password string
}

func (c SMTPConfig) configured() bool {
	return c.User != "" && c.Password != ""
}

type notifyRequest struct {
	Analysis     llm.Analysis `json:"analysis"`
	Email        string       `json:"email"`
	SlackWebhook string       `json:"slack_webhook"`
}

// handleNotify sends the meeting summary by email and Slack webhook.
// Each channel is best effort: a failed delivery is logged, and the
// response lists the channels that went through.
func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	summary := summaryText(req.Analysis)
	sent := []string{}

	if strings.TrimSpace(req.Email) != "" {
		if h.cfg.SMTP.configured() {
			if err := h.sendEmail(req.Email, summary); err != nil {
				h.logger.Error("email notification failed", "error", err)
			} else {
				sent = append(sent, "email")
			}
		} else {
			h.logger.Warn("email requested but SMTP credentials not configured")
		}
	}

	webhook := req.SlackWebhook
	if webhook == "use_env" {
		webhook = h.cfg.SlackWebhookURL
	}
	if webhook != "" {
		if err := h.sendSlack(r.Context(), webhook, req.Analysis); err != nil {
			h.logger.Error("slack notification failed", "error", err)
		} else {
			sent = append(sent, "slack")
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Notifications sent successfully",
		"sent":    sent,
	})
}

// summaryText renders the analysis as the plain-text body of the email.
func summaryText(a llm.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting Summary, %s\n\n", time.Now().Format("2006-01-02 15:04"))
	b.WriteString(a.Summary)

	fmt.Fprintf(&b, "\n\nTASKS (%d):\n", len(a.Tasks))
	for _, task := range a.Tasks {
		fmt.Fprintf(&b, "- %s: %s (Due: %s)\n", task.Title, task.Assignee, task.DueDate)
	}

	fmt.Fprintf(&b, "\nDECISIONS (%d):\n", len(a.Decisions))
	for _, d := range a.Decisions {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	fmt.Fprintf(&b, "\nRISKS (%d):\n", len(a.Risks))
	for _, risk := range a.Risks {
		fmt.Fprintf(&b, "- %s\n", risk)
	}
	return b.String()
}

func (h *Handler) sendEmail(to, body string) error {
	cfg := h.cfg.SMTP
	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	auth := smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Server)

	msg := strings.Join([]string{
		"From: " + cfg.User,
		"To: " + to,
		"Subject: Meeting Summary, " + time.Now().Format("2006-01-02"),
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(addr, auth, cfg.User, []string{to}, []byte(msg))
}

func (h *Handler) sendSlack(ctx context.Context, webhook string, a llm.Analysis) error {
	payload := map[string]any{
		"text": "*Meeting Summary*\n\n" + a.Summary,
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]string{"type": "plain_text", "text": "Meeting Summary"},
			},
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": a.Summary},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf(
						"*Tasks:* %d | *Decisions:* %d | *Risks:* %d",
						len(a.Tasks), len(a.Decisions), len(a.Risks),
					),
				},
			},
		},
	}

	body, status, err := h.postJSON(ctx, webhook, payload, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d: %s", status, string(body))
	}
	return nil
}
