package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

type ConsoleConfig struct {
	APIBaseURL string
	UserID     string
	Language   string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		UserID:     getEnv("USER_ID", "console-user"),
		Language:   getEnv("PLAYER_LANGUAGE", "pt-BR"),
		Timeout:    30 * time.Second,
	}

	api := newAPIClient(cfg, &http.Client{Timeout: cfg.Timeout})

	if !api.healthy() {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: docker-compose up -d\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	character, err := selectCharacter(api)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to select character: %v\n", err)
		os.Exit(1)
	}

	chronicle, err := api.createChronicle(character.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open chronicle: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api, character, chronicle),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// selectCharacter lists the user's characters and prompts for a choice,
// falling back to interactive creation when none exist.
func selectCharacter(api *apiClient) (*vtm.Character, error) {
	characters, err := api.listCharacters()
	if err != nil {
		return nil, err
	}

	if len(characters) == 0 {
		fmt.Println("No characters yet. Let's make one.")
		return promptNewCharacter(api)
	}

	fmt.Println("Your characters:")
	for i, c := range characters {
		fmt.Printf("  %d - %s (%s)\n", i+1, c.Name, c.Clan)
	}
	fmt.Printf("  %d - New character\n", len(characters)+1)
	fmt.Print("\nSelect by number: ")

	var choice int
	if _, err := fmt.Scanf("%d\n", &choice); err != nil || choice < 1 || choice > len(characters)+1 {
		return nil, fmt.Errorf("invalid selection")
	}
	if choice == len(characters)+1 {
		return promptNewCharacter(api)
	}
	return characters[choice-1], nil
}

func promptNewCharacter(api *apiClient) (*vtm.Character, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	fmt.Printf("Clan (%s): ", strings.Join(vtm.Clans, ", "))
	clan, _ := reader.ReadString('\n')
	clan = strings.TrimSpace(clan)

	fmt.Print("Concept (one line, optional): ")
	concept, _ := reader.ReadString('\n')

	attrs := vtm.Attributes{}
	prompts := []struct {
		label string
		field *int
	}{
		{"Strength", &attrs.Strength}, {"Dexterity", &attrs.Dexterity}, {"Stamina", &attrs.Stamina},
		{"Charisma", &attrs.Charisma}, {"Manipulation", &attrs.Manipulation}, {"Composure", &attrs.Composure},
		{"Intelligence", &attrs.Intelligence}, {"Wits", &attrs.Wits}, {"Resolve", &attrs.Resolve},
	}
	fmt.Println("Attributes, 1 to 5 each:")
	for _, p := range prompts {
		fmt.Printf("  %s: ", p.label)
		line, _ := reader.ReadString('\n')
		v, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || v < 1 || v > 5 {
			return nil, fmt.Errorf("%s must be 1-5", p.label)
		}
		*p.field = v
	}

	return api.createCharacter(name, clan, strings.TrimSpace(concept), attrs)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
