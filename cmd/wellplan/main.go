// cmd/wellplan/main.go
//
// This is the entry point for the wellplan client.
//
// Flow:
// 1. Resolve the project directory and create .wellplan/ if needed
// 2. Load config (file, then WELLPLAN_API_URL, then the -api flag)
// 3. Open the trace log and the session journal
// 4. Launch the TUI against the planning API

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/wellplan/internal/config"
	"github.com/kingrea/wellplan/internal/logbook"
	"github.com/kingrea/wellplan/internal/logging"
	"github.com/kingrea/wellplan/internal/planapi"
	"github.com/kingrea/wellplan/internal/session"
	"github.com/kingrea/wellplan/internal/tui"
)

func main() {
	apiURL := flag.String("api", "", "planning API base URL (overrides config and WELLPLAN_API_URL)")
	dir := flag.String("dir", "", "directory holding .wellplan/ (defaults to the working directory)")
	flag.Parse()

	projectDir := *dir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fail("Error getting working directory: %v", err)
		}
		projectDir = cwd
	}
	projectDir, err := filepath.Abs(projectDir)
	if err != nil {
		fail("Error resolving directory: %v", err)
	}

	if err := config.InitDir(projectDir); err != nil {
		fail("Error initializing .wellplan directory: %v", err)
	}
	cfg, err := config.New(projectDir)
	if err != nil {
		fail("Error loading config: %v", err)
	}
	if *apiURL != "" {
		if err := cfg.OverrideBaseURL(*apiURL); err != nil {
			fail("Error in -api flag: %v", err)
		}
	}

	logger, err := logging.New(projectDir)
	if err != nil {
		fail("Error opening log file: %v", err)
	}
	defer logger.Close()

	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		fail("Error opening session journal: %v", err)
	}

	sess := session.New()
	client, err := planapi.New(cfg.BaseURL(),
		planapi.WithTimeout(cfg.Timeout()),
		planapi.WithSessionID(sess.ID()),
		planapi.WithTracer(logger),
	)
	if err != nil {
		fail("Error configuring planning API client: %v", err)
	}
	logger.Printf("wellplan: session %s against %s", sess.ID(), client.BaseURL())

	app := tui.NewApp(client,
		tui.WithSession(sess),
		tui.WithLogbook(journal, cfg.LogLines()),
		tui.WithServiceLabel(client.BaseURL()),
	)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Close()
		fail("Error running TUI: %v", err)
	}
	fmt.Printf("Request trace: %s\nSession journal: %s\n", logger.Path(), journal.Path())
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
