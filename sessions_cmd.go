package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"minuted.app/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live meeting sessions on a running server",
	Run:   runSessions,
}

func init() {
	sessionsCmd.Flags().
		String("server", "http://localhost:8000", "Base URL of the minuted server")
}

func runSessions(cmd *cobra.Command, args []string) {
	mainLogger, _, _, _, _ := createLoggers()

	base, _ := cmd.Flags().GetString("server")
	resp, err := http.Get(base + "/api/sessions")
	if err != nil {
		mainLogger.Fatal("fetch sessions", "error", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		mainLogger.Fatal("fetch sessions", "status", resp.StatusCode)
	}

	var infos []session.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		mainLogger.Fatal("decode sessions", "error", err.Error())
	}

	if len(infos) == 0 {
		fmt.Println("No live sessions.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Meeting", "Clients", "Fragments", "Started", "Age"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, info := range infos {
		table.Append([]string{
			info.MeetingID,
			fmt.Sprintf("%d", info.Clients),
			fmt.Sprintf("%d", info.Fragments),
			info.StartedAt.Format("2006-01-02 15:04:05"),
			time.Since(info.StartedAt).Round(time.Second).String(),
		})
	}

	table.Render()
}
