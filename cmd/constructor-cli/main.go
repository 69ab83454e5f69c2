// Command constructor-cli is a local REPL for exercising the constructor
// conversation without a database or HTTP server. With ANTHROPIC_API_KEY set
// it talks to the real provider; otherwise the lorem mock provider answers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"vitrina/internal/config"
	"vitrina/internal/domain/services"
	"vitrina/internal/persona"
	"vitrina/internal/repository/memory"
	"vitrina/internal/service/constructor"
	"vitrina/internal/service/extract"
	serviceLLM "vitrina/internal/service/llm"
	"vitrina/internal/session"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	model := cfg.DefaultModel
	if cfg.AnthropicAPIKey == "" {
		model = "lorem-chat"
		fmt.Printf("%sANTHROPIC_API_KEY not set, using the lorem mock provider%s\n", colorYellow, colorReset)
	}

	registry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("setup providers: %v", err)
	}
	personas, err := persona.NewRegistry()
	if err != nil {
		log.Fatalf("load personas: %v", err)
	}

	agentRepo := memory.NewAgentRepository()
	svc := constructor.NewService(
		session.NewMemoryStore(),
		agentRepo,
		extract.NewService(registry, cfg.ExtractModel, logger),
		registry,
		personas,
		model,
		logger,
	)

	ctx := context.Background()
	userID := "cli-user"
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Printf("%sConstructor CLI%s — type your message, /reset to start over, /agents to inspect, /quit to exit\n", colorCyan, colorReset)

	for {
		fmt.Printf("%syou>%s ", colorGreen, colorReset)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return
		case "/reset":
			if err := svc.ResetSession(ctx, userID, ""); err != nil {
				fmt.Printf("%sreset failed: %v%s\n", colorYellow, err, colorReset)
			} else {
				fmt.Println("session reset")
			}
			continue
		case "/agents":
			agents, err := agentRepo.ListByUser(ctx, userID)
			if err != nil {
				fmt.Printf("%slist failed: %v%s\n", colorYellow, err, colorReset)
				continue
			}
			for _, a := range agents {
				kbJSON, _ := json.MarshalIndent(a.KnowledgeBase, "", "  ")
				fmt.Printf("%s%s%s (%s, %s)\n%s\n", colorCyan, a.AgentName, colorReset, a.BusinessType, a.Status, kbJSON)
			}
			if len(agents) == 0 {
				fmt.Println("no agents yet")
			}
			continue
		}

		result, err := svc.HandleMessage(ctx, &services.ChatRequest{
			UserID:  userID,
			Message: line,
		})
		if err != nil {
			fmt.Printf("%serror: %v%s\n", colorYellow, err, colorReset)
			continue
		}

		fmt.Printf("%sbot>%s %s\n", colorBlue, colorReset, result.Response)
		if result.AgentCreated {
			fmt.Printf("%sagent created: %s%s\n", colorCyan, result.AgentID, colorReset)
		}
		if result.AgentUpdated {
			fmt.Printf("%sagent updated: %s%s\n", colorCyan, result.AgentID, colorReset)
		}
	}
}
