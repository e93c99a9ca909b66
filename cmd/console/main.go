package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/pkg/state"
)

func main() {
	baseURL := getEnv("API_BASE_URL", "http://localhost:8080")
	client := &http.Client{Timeout: 60 * time.Second}
	api := newAPIClient(client, baseURL)

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d\n", baseURL)
		os.Exit(1)
	}

	owner := getEnv("PLAYER_ID", "console")

	// Resume an existing game by ID, or start a new one.
	var gs *state.GameState
	var err error
	if gameID := strings.TrimSpace(os.Getenv("GAME_ID")); gameID != "" {
		var id uuid.UUID
		id, err = uuid.Parse(gameID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid GAME_ID: %v\n", err)
			os.Exit(1)
		}
		gs, err = api.getGame(id)
	} else {
		fmt.Print("Describe the kind of story you want (or press Enter for the narrator's choice):\n> ")
		guidance := readLine()
		gs, err = api.createGame(owner, guidance)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open game: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(api, gs),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func readLine() string {
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
