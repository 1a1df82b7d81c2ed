// Package config loads runtime settings from a TOML file with environment
// variable overrides. Everything has a usable default so a missing file is
// not an error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime configuration.
type Config struct {
	Workspace   string            `toml:"workspace"`
	Model       ModelConfig       `toml:"model"`
	Agent       AgentConfig       `toml:"agent"`
	Engine      EngineConfig      `toml:"engine"`
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Trace       TraceConfig       `toml:"trace"`
}

// ModelConfig selects the language model backend.
type ModelConfig struct {
	Provider string `toml:"provider"` // openai, anthropic, gemini, ollama, dummy
	Name     string `toml:"name"`
}

// AgentConfig tunes the conversation loop.
type AgentConfig struct {
	MaxIterations int `toml:"max_iterations"`
}

// EngineConfig tunes tool execution.
type EngineConfig struct {
	MaxAttempts       int     `toml:"max_attempts"`
	RetryDelaySeconds float64 `toml:"retry_delay_seconds"`
}

// RetryDelay converts the configured seconds into a duration.
func (c EngineConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// CoordinatorConfig tunes the multi-agent loop.
type CoordinatorConfig struct {
	MaxRounds     int `toml:"max_rounds"`
	CompleteAfter int `toml:"complete_after"`
}

// TraceConfig selects where run traces go.
type TraceConfig struct {
	Backend       string `toml:"backend"` // memory, postgres, mongo
	PostgresDSN   string `toml:"postgres_dsn"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	Neo4jURI      string `toml:"neo4j_uri"`
	Neo4jUser     string `toml:"neo4j_user"`
	Neo4jPassword string `toml:"neo4j_password"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Workspace: "workspace",
		Model:     ModelConfig{Provider: "openai", Name: "gpt-4o-mini"},
		Agent:     AgentConfig{MaxIterations: 10},
		Engine: EngineConfig{
			MaxAttempts:       3,
			RetryDelaySeconds: 1,
		},
		Coordinator: CoordinatorConfig{MaxRounds: 6, CompleteAfter: 2},
		Trace:       TraceConfig{Backend: "memory", MongoDatabase: "hdlforge"},
	}
}

// Load reads path on top of the defaults, then applies HDLFORGE_* environment
// overrides. A missing file is fine; a malformed one is not.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Workspace, "HDLFORGE_WORKSPACE")
	setString(&c.Model.Provider, "HDLFORGE_MODEL_PROVIDER")
	setString(&c.Model.Name, "HDLFORGE_MODEL_NAME")
	setInt(&c.Agent.MaxIterations, "HDLFORGE_MAX_ITERATIONS")
	setInt(&c.Engine.MaxAttempts, "HDLFORGE_MAX_ATTEMPTS")
	setFloat(&c.Engine.RetryDelaySeconds, "HDLFORGE_RETRY_DELAY_SECONDS")
	setInt(&c.Coordinator.MaxRounds, "HDLFORGE_MAX_ROUNDS")
	setInt(&c.Coordinator.CompleteAfter, "HDLFORGE_COMPLETE_AFTER")
	setString(&c.Trace.Backend, "HDLFORGE_TRACE_BACKEND")
	setString(&c.Trace.PostgresDSN, "HDLFORGE_POSTGRES_DSN")
	setString(&c.Trace.MongoURI, "HDLFORGE_MONGO_URI")
	setString(&c.Trace.MongoDatabase, "HDLFORGE_MONGO_DATABASE")
	setString(&c.Trace.Neo4jURI, "HDLFORGE_NEO4J_URI")
	setString(&c.Trace.Neo4jUser, "HDLFORGE_NEO4J_USER")
	setString(&c.Trace.Neo4jPassword, "HDLFORGE_NEO4J_PASSWORD")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
