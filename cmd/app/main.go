// Command app runs a single hardware-design agent against a workspace: it
// reads a task from the command line, lets the agent call file and build
// tools, and prints the final answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	hdlforge "github.com/hdlforge/go-hdlforge"
	"github.com/hdlforge/go-hdlforge/src/config"
	"github.com/hdlforge/go-hdlforge/src/engine"
	"github.com/hdlforge/go-hdlforge/src/events"
	"github.com/hdlforge/go-hdlforge/src/models"
	"github.com/hdlforge/go-hdlforge/src/tools"
	"github.com/hdlforge/go-hdlforge/src/trace"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "hdlforge.toml", "path to the TOML config file")
	flag.Parse()

	task := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(task) == "" {
		task = "Generate an 8-bit adder module named adder and write it to rtl/adder.v."
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	model, err := buildModel(ctx, cfg)
	if err != nil {
		logger.Error("build model", "error", err)
		os.Exit(1)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("open trace store", "error", err)
		os.Exit(1)
	}
	defer store.Close(ctx)

	sink := events.MultiSink{events.NewSlogSink(logger), trace.NewSink(store)}

	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		logger.Error("create workspace", "error", err)
		os.Exit(1)
	}

	agent, err := hdlforge.New(hdlforge.Options{
		ID:    "designer",
		Model: model,
		Tools: []tools.Tool{
			tools.NewWriteFileTool(cfg.Workspace),
			tools.NewReadFileTool(cfg.Workspace),
			tools.NewListDirectoryTool(cfg.Workspace),
			tools.NewRunScriptTool(cfg.Workspace, 2*time.Minute),
			tools.NewGenerateModuleTool(cfg.Workspace),
		},
		MaxIterations: cfg.Agent.MaxIterations,
		Engine: engine.Options{
			MaxAttempts: cfg.Engine.MaxAttempts,
			RetryDelay:  cfg.Engine.RetryDelay(),
		},
		Sink: sink,
	})
	if err != nil {
		logger.Error("build agent", "error", err)
		os.Exit(1)
	}

	answer, err := agent.Process(ctx, "cli", task)
	if err != nil {
		logger.Error("process task", "error", err)
		os.Exit(1)
	}
	fmt.Println(answer)
}

func buildModel(ctx context.Context, cfg config.Config) (models.Agent, error) {
	switch cfg.Model.Provider {
	case "openai":
		return models.NewOpenAILLM(cfg.Model.Name, ""), nil
	case "anthropic":
		return models.NewAnthropicLLM(cfg.Model.Name, ""), nil
	case "gemini":
		return models.NewGeminiLLM(ctx, cfg.Model.Name, "")
	case "ollama":
		return models.NewOllamaLLM(cfg.Model.Name, "")
	case "dummy":
		return models.NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (trace.Store, error) {
	switch cfg.Trace.Backend {
	case "", "memory":
		return trace.NewMemoryStore(), nil
	case "postgres":
		return trace.NewPostgresStore(ctx, cfg.Trace.PostgresDSN)
	case "mongo":
		return trace.NewMongoStore(ctx, cfg.Trace.MongoURI, cfg.Trace.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown trace backend %q", cfg.Trace.Backend)
	}
}
