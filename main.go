package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger *log.Logger

var rootCmd = &cobra.Command{
	Use:   "minuted",
	Short: "minuted turns live meetings into transcripts and insights",
	Long: `minuted ingests streaming meeting audio over websockets, produces
incremental transcripts, and on finalize hands the transcript to a
language model that extracts tasks, decisions, risks, and a summary.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sessionsCmd)

	rootCmd.PersistentFlags().
		String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().
		String("deepgram-api-key", "", "Deepgram API key")
	rootCmd.PersistentFlags().
		String("listen", ":8000", "Address for the HTTP/websocket server")
	rootCmd.PersistentFlags().
		String("stt", "whisper", "Transcription backend: whisper or deepgram")

	viper.BindPFlag(
		"openai_api_key",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag(
		"deepgram_api_key",
		rootCmd.PersistentFlags().Lookup("deepgram-api-key"),
	)
	viper.BindPFlag("listen_addr", rootCmd.PersistentFlags().Lookup("listen"))
	viper.BindPFlag("stt_backend", rootCmd.PersistentFlags().Lookup("stt"))

	viper.SetDefault("stt_timeout", "30s")
	viper.SetDefault("analyze_timeout", "60s")
	viper.SetDefault("send_buffer", 32)
	viper.SetDefault("jira_project_key", "PROJ")
	viper.SetDefault("smtp_server", "smtp.gmail.com")
	viper.SetDefault("smtp_port", 587)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
	logger.SetLevel(log.DebugLevel)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.Bold(false).
		Transform(func(s string) string {
			return strings.TrimSuffix(s, ":")
		})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))
	logger.SetStyles(styles)
}

// createLoggers hands out prefixed child loggers for each subsystem.
func createLoggers() (mainLogger, sessLogger, hearLogger, mindLogger, httpLogger *log.Logger) {
	mainLogger = logger.With().WithPrefix("main")
	sessLogger = logger.With().WithPrefix("sess")
	hearLogger = logger.With().WithPrefix("hear")
	mindLogger = logger.With().WithPrefix("mind")
	httpLogger = logger.With().WithPrefix("http")
	return
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
