// Command llmcheck sends one scripted chat turn to every configured completion
// provider and reports whether the reply decodes into the chat payload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"

	"github.com/exa-engenharia/exa-chatbot/cmd/mainconfig"
	"github.com/exa-engenharia/exa-chatbot/internal/assistant"
	"github.com/exa-engenharia/exa-chatbot/internal/completion"
	appconfig "github.com/exa-engenharia/exa-chatbot/internal/config"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	message := flag.String("message", "Vocês fazem projeto estrutural para galpões?", "visitor message to send")
	timeout := flag.Duration("timeout", 30*time.Second, "per-provider timeout")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New("warn")

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println("Completion Provider Check")
	fmt.Println(rule)

	failures := 0
	for i, name := range []string{"openai", "gemini", "bedrock"} {
		fmt.Printf("\n[%d] %s\n", i+1, name)
		client, skip := buildClient(name, cfg)
		if skip != "" {
			fmt.Printf("    skipped: %s\n", skip)
			continue
		}
		if !check(client, cfg, *message, *timeout, logger) {
			failures++
		}
	}

	fmt.Println("\n" + rule)
	if failures > 0 {
		fmt.Printf("%d provider(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("all configured providers answered")
}

func buildClient(name string, cfg *appconfig.Config) (completion.Client, string) {
	switch name {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, "OPENAI_API_KEY not set"
		}
		c, err := completion.NewOpenAIClient(completion.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, err.Error()
		}
		return c, ""
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, "GEMINI_API_KEY not set"
		}
		c, err := completion.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err.Error()
		}
		return c, ""
	case "bedrock":
		if cfg.BedrockModelID == "" {
			return nil, "BEDROCK_MODEL_ID not set"
		}
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			return nil, err.Error()
		}
		c, err := completion.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, err.Error()
		}
		return c, ""
	}
	return nil, "unknown provider"
}

func check(client completion.Client, cfg *appconfig.Config, message string, timeout time.Duration, logger *logging.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	asst := assistant.New(client, assistant.Config{
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	}, logger)

	start := time.Now()
	payload, err := asst.Reply(ctx, nil, message)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		fmt.Printf("    FAIL (%v): %v\n", elapsed, err)
		return false
	}
	fmt.Printf("    ok (%v)\n", elapsed)
	fmt.Printf("    resposta: %s\n", payload.Resposta)
	for _, q := range payload.PerguntasDinamicas {
		fmt.Printf("    - %s\n", q)
	}
	return true
}
