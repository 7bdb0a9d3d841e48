package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"minuted.app/llm"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <transcript-file>",
	Short: "Analyze a saved transcript and print the insights",
	Long: `Read a meeting transcript from a file, run the analyzer on it, and
render the extracted tasks, decisions, risks, and summary as markdown.`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) {
	mainLogger, _, _, mindLogger, _ := createLoggers()

	openaiKey := viper.GetString("openai_api_key")
	if openaiKey == "" {
		mainLogger.Fatal("missing OPENAI_API_KEY or --openai-api-key=")
	}

	transcript, err := os.ReadFile(args[0])
	if err != nil {
		mainLogger.Fatal("read transcript", "error", err.Error())
	}

	analyzer := llm.NewOpenAIAnalyzer(openaiKey, mindLogger)
	analysis, err := analyzer.Analyze(context.Background(), string(transcript))
	if err != nil {
		mainLogger.Fatal("analyze transcript", "error", err.Error())
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		mainLogger.Fatal("create renderer", "error", err.Error())
	}

	rendered, err := renderer.Render(analysisMarkdown(analysis))
	if err != nil {
		mainLogger.Fatal("render analysis", "error", err.Error())
	}
	fmt.Print(rendered)
}

func analysisMarkdown(a *llm.Analysis) string {
	var b strings.Builder

	b.WriteString("# Meeting Insights\n\n")
	b.WriteString(a.Summary)
	b.WriteString("\n\n## Tasks\n\n")
	if len(a.Tasks) == 0 {
		b.WriteString("_none_\n")
	}
	for _, t := range a.Tasks {
		fmt.Fprintf(&b, "- **%s**", t.Title)
		if t.Assignee != "" {
			fmt.Fprintf(&b, ", %s", t.Assignee)
		}
		if t.DueDate != "" {
			fmt.Fprintf(&b, " (due %s)", t.DueDate)
		}
		if t.Priority != "" {
			fmt.Fprintf(&b, " [%s]", t.Priority)
		}
		b.WriteString("\n")
	}

	writeList := func(title string, items []string) {
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		if len(items) == 0 {
			b.WriteString("_none_\n")
			return
		}
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	writeList("Decisions", a.Decisions)
	writeList("Risks", a.Risks)
	writeList("Follow-ups", a.FollowUps)

	return b.String()
}
