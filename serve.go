package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"minuted.app/api"
	"minuted.app/llm"
	"minuted.app/metrics"
	"minuted.app/session"
	"minuted.app/stt"
	"minuted.app/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the realtime meeting service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	mainLogger, sessLogger, hearLogger, mindLogger, httpLogger := createLoggers()

	openaiKey := viper.GetString("openai_api_key")
	if openaiKey == "" {
		mainLogger.Fatal("missing OPENAI_API_KEY or --openai-api-key=")
	}

	factory, oneShot, err := buildTranscribers(hearLogger)
	if err != nil {
		mainLogger.Fatal("configure transcription", "error", err.Error())
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	registry := session.NewRegistry(factory, sessLogger, m)
	analyzer := llm.NewOpenAIAnalyzer(openaiKey, mindLogger)

	handler := session.NewHandler(
		registry,
		analyzer,
		sessLogger,
		m,
		viper.GetDuration("stt_timeout"),
		viper.GetDuration("analyze_timeout"),
	)

	wsServer := ws.NewServer(
		registry,
		handler,
		sessLogger,
		viper.GetInt("send_buffer"),
	)
	apiHandler := api.NewHandler(analyzer, oneShot, registry, httpLogger, exportConfig())

	r := chi.NewRouter()
	r.Get("/ws/{meetingID}", wsServer.ServeWS)
	apiHandler.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	addr := viper.GetString("listen_addr")
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		mainLogger.Info("listening", "addr", addr, "stt", viper.GetString("stt_backend"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Fatal("server failed", "error", err.Error())
		}
	}()

	<-ctx.Done()
	mainLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error("shutdown", "error", err.Error())
	}
}

// exportConfig reads the export and notification credentials. All keys
// come from the environment (JIRA_URL, NOTION_API_TOKEN, ...) or the
// config file; none are required, and unset integrations answer 400.
func exportConfig() api.Config {
	return api.Config{
		Jira: api.JiraConfig{
			URL:        viper.GetString("jira_url"),
			Email:      viper.GetString("jira_email"),
			APIToken:   viper.GetString("jira_api_token"),
			ProjectKey: viper.GetString("jira_project_key"),
		},
		Notion: api.NotionConfig{
			APIToken:   viper.GetString("notion_api_token"),
			DatabaseID: viper.GetString("notion_database_id"),
		},
		Trello: api.TrelloConfig{
			APIKey:   viper.GetString("trello_api_key"),
			APIToken: viper.GetString("trello_api_token"),
			BoardID:  viper.GetString("trello_board_id"),
			ListID:   viper.GetString("trello_list_id"),
		},
		SMTP: api.SMTPConfig{
			Server:   viper.GetString("smtp_server"),
			Port:     viper.GetInt("smtp_port"),
			User:     viper.GetString("smtp_user"),
			Password: viper.GetString("smtp_password"),
		},
		SlackWebhookURL: viper.GetString("slack_webhook_url"),
	}
}

// buildTranscribers picks the configured backend and returns both the
// per-session factory and a shared instance for the one-shot upload
// endpoint.
func buildTranscribers(hearLogger *log.Logger) (stt.Factory, stt.Transcriber, error) {
	backend := viper.GetString("stt_backend")
	switch backend {
	case "whisper":
		key := viper.GetString("openai_api_key")
		if key == "" {
			return nil, nil, fmt.Errorf("whisper backend needs an OpenAI API key")
		}
		factory := func() stt.Transcriber {
			return stt.NewWhisper(key, hearLogger)
		}
		return factory, factory(), nil
	case "deepgram":
		key := viper.GetString("deepgram_api_key")
		if key == "" {
			return nil, nil, fmt.Errorf("deepgram backend needs DEEPGRAM_API_KEY or --deepgram-api-key=")
		}
		factory := func() stt.Transcriber {
			return stt.NewDeepgram(key, hearLogger)
		}
		return factory, factory(), nil
	default:
		return nil, nil, fmt.Errorf("unknown stt backend %q", backend)
	}
}
