// Command team runs a two-agent design/review team: a coordinator decides
// each round whether the designer or the reviewer acts, and a styled report
// of the dispatched tasks is printed at the end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	hdlforge "github.com/hdlforge/go-hdlforge"
	"github.com/hdlforge/go-hdlforge/src/config"
	"github.com/hdlforge/go-hdlforge/src/coordinator"
	"github.com/hdlforge/go-hdlforge/src/engine"
	"github.com/hdlforge/go-hdlforge/src/events"
	"github.com/hdlforge/go-hdlforge/src/models"
	"github.com/hdlforge/go-hdlforge/src/tools"
	"github.com/hdlforge/go-hdlforge/src/trace"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	agentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "hdlforge.toml", "path to the TOML config file")
	flag.Parse()

	task := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(task) == "" {
		task = "Design an 8-bit ALU in Verilog, then review it for correctness."
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

	designer, err := hdlforge.New(hdlforge.Options{
		ID:    "designer",
		Model: model,
		Tools: []tools.Tool{
			tools.NewWriteFileTool(cfg.Workspace),
			tools.NewGenerateModuleTool(cfg.Workspace),
			tools.NewRunScriptTool(cfg.Workspace, 2*time.Minute),
		},
		SystemPrompt:  "You are an RTL design engineer. Produce clean, synthesizable Verilog using the tools.",
		MaxIterations: cfg.Agent.MaxIterations,
		Engine: engine.Options{
			MaxAttempts: cfg.Engine.MaxAttempts,
			RetryDelay:  cfg.Engine.RetryDelay(),
		},
		Sink: sink,
	})
	if err != nil {
		logger.Error("build designer", "error", err)
		os.Exit(1)
	}

	reviewer, err := hdlforge.New(hdlforge.Options{
		ID:    "reviewer",
		Model: model,
		Tools: []tools.Tool{
			tools.NewReadFileTool(cfg.Workspace),
			tools.NewListDirectoryTool(cfg.Workspace),
			tools.NewRunScriptTool(cfg.Workspace, 2*time.Minute),
		},
		SystemPrompt:  "You are an RTL reviewer. Read the generated files and report problems before signing off.",
		MaxIterations: cfg.Agent.MaxIterations,
		Engine: engine.Options{
			MaxAttempts: cfg.Engine.MaxAttempts,
			RetryDelay:  cfg.Engine.RetryDelay(),
		},
		Sink: sink,
	})
	if err != nil {
		logger.Error("build reviewer", "error", err)
		os.Exit(1)
	}

	team, err := coordinator.New(coordinator.Options{
		Decider:       model,
		MaxRounds:     cfg.Coordinator.MaxRounds,
		CompleteAfter: cfg.Coordinator.CompleteAfter,
		Store:         store,
		Sink:          sink,
	})
	if err != nil {
		logger.Error("build coordinator", "error", err)
		os.Exit(1)
	}
	if err := team.Register(designer, coordinator.CapabilityDesign, coordinator.CapabilitySimulation); err != nil {
		logger.Error("register designer", "error", err)
		os.Exit(1)
	}
	if err := team.Register(reviewer, coordinator.CapabilityReview); err != nil {
		logger.Error("register reviewer", "error", err)
		os.Exit(1)
	}

	report, err := team.Run(ctx, "", task)
	if err != nil {
		logger.Error("run team", "error", err)
		os.Exit(1)
	}

	recordLineage(ctx, cfg, report, logger)
	printReport(report)
}

func recordLineage(ctx context.Context, cfg config.Config, report *coordinator.Report, logger *slog.Logger) {
	if cfg.Trace.Neo4jURI == "" {
		return
	}
	lineage, err := trace.NewNeo4jDriverAdapter(cfg.Trace.Neo4jURI, cfg.Trace.Neo4jUser, cfg.Trace.Neo4jPassword, "")
	if err != nil {
		logger.Warn("neo4j unavailable", "error", err)
		return
	}
	defer lineage.Close(ctx)
	for _, task := range report.Tasks {
		if err := lineage.RecordLineage(ctx, task); err != nil {
			logger.Warn("record lineage", "task", task.ID, "error", err)
		}
	}
}

func printReport(report *coordinator.Report) {
	fmt.Println(titleStyle.Render("Team run " + report.SessionID))
	fmt.Println(subtleStyle.Render(fmt.Sprintf("rounds: %d, completed: %t", report.Rounds, report.Completed)))
	for _, task := range report.Tasks {
		status := okStyle.Render("ok")
		detail := task.Output
		if task.Status == "failed" {
			status = failStyle.Render("failed")
			detail = task.Error
		}
		fmt.Printf("%s [%s] %s\n", agentStyle.Render(task.AgentID), status, subtleStyle.Render(task.Duration.Round(time.Millisecond).String()))
		if detail != "" {
			fmt.Println("  " + strings.ReplaceAll(strings.TrimSpace(detail), "\n", "\n  "))
		}
		if len(task.Artifacts) > 0 {
			fmt.Println(subtleStyle.Render("  artifacts: " + strings.Join(task.Artifacts, ", ")))
		}
	}
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
