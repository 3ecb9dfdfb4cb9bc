package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML strings like "90s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// AgentConfig is the static definition of one agent in the fleet.
type AgentConfig struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Capabilities   []string `yaml:"capabilities"`
	PrimaryModel   string   `yaml:"primary_model"`
	SecondaryModel string   `yaml:"secondary_model"`
	TaskTimeout    Duration `yaml:"task_timeout"`
	// MaxModelFailures is the consecutive-model-failure count that moves the
	// agent to ERROR. Zero means the built-in default.
	MaxModelFailures int `yaml:"max_model_failures"`
}

// CategoryConfig is one classification category and its fallback keywords,
// in priority order.
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type ClassifierConfig struct {
	Model           string           `yaml:"model"`
	Categories      []CategoryConfig `yaml:"categories"`
	DefaultCategory string           `yaml:"default_category"`
}

type RoutingConfig struct {
	Routes       map[string]string `yaml:"routes"` // category -> agent id
	DefaultAgent string            `yaml:"default_agent"`
}

type CompletionConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type Config struct {
	Completion CompletionConfig `yaml:"completion"`
	Agents     []AgentConfig    `yaml:"agents"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Routing    RoutingConfig    `yaml:"routing"`
}

// Load reads the fleet configuration file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents defined")
	}

	ids := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent with empty id")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate agent id %s", a.ID)
		}
		ids[a.ID] = true
		if a.PrimaryModel == "" {
			return fmt.Errorf("agent %s has no primary model", a.ID)
		}
	}

	if c.Routing.DefaultAgent == "" {
		return fmt.Errorf("routing has no default agent")
	}
	if !ids[c.Routing.DefaultAgent] {
		return fmt.Errorf("default agent %s is not defined", c.Routing.DefaultAgent)
	}
	for category, agentID := range c.Routing.Routes {
		if !ids[agentID] {
			return fmt.Errorf("route %s -> %s references undefined agent", category, agentID)
		}
	}

	if c.Classifier.DefaultCategory == "" {
		return fmt.Errorf("classifier has no default category")
	}
	return nil
}

// Default is the baseline fleet used when no config file is given: one
// general conversational agent per classification concern.
func Default() *Config {
	return &Config{
		Completion: CompletionConfig{
			BaseURL: "http://localhost:8000/v1",
		},
		Agents: []AgentConfig{
			{ID: "chat", Name: "Conversation Agent", Capabilities: []string{"conversation"}, PrimaryModel: "local-chat", SecondaryModel: "local-chat-small"},
			{ID: "code", Name: "Code Agent", Capabilities: []string{"code"}, PrimaryModel: "local-coder", SecondaryModel: "local-chat"},
			{ID: "creative", Name: "Creative Writer", Capabilities: []string{"creative"}, PrimaryModel: "local-chat", SecondaryModel: "local-chat-small"},
			{ID: "scraper", Name: "Scraping Agent", Capabilities: []string{"scraping"}, PrimaryModel: "local-chat", SecondaryModel: "local-chat-small"},
			{ID: "orchestration", Name: "Orchestration Agent", Capabilities: []string{"orchestration"}, PrimaryModel: "local-chat", SecondaryModel: "local-chat-small"},
		},
		Classifier: ClassifierConfig{
			Model:           "local-chat-small",
			DefaultCategory: "conversation",
			Categories: []CategoryConfig{
				{Name: "code", Keywords: []string{"function", "code", "bug", "compile", "refactor"}},
				{Name: "creative", Keywords: []string{"story", "poem", "write me", "creative"}},
				{Name: "scraping", Keywords: []string{"scrape", "crawl", "extract from", "fetch page"}},
				{Name: "orchestration", Keywords: []string{"deploy", "orchestrate", "pipeline", "provision"}},
			},
		},
		Routing: RoutingConfig{
			DefaultAgent: "chat",
			Routes: map[string]string{
				"code":          "code",
				"creative":      "creative",
				"scraping":      "scraper",
				"orchestration": "orchestration",
				"conversation":  "chat",
			},
		},
	}
}

// GetEnv reads an environment variable with a default.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
