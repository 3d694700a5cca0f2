package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"copbot/internal/parse"
)

type Config struct {
	SlackEnabled  bool   `yaml:"slack_enabled"`
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	// SlackChannels restricts intake to these channel IDs; empty means
	// every channel the bot is in.
	SlackChannels []string `yaml:"slack_channels"`

	HTTPAddr string `yaml:"http_addr"`
	DBPath   string `yaml:"db_path"`
	Timezone string `yaml:"timezone"`

	// PruneSchedule is a standard 5-field cron spec for the retention
	// sweep.
	PruneSchedule  string `yaml:"prune_schedule"`
	MaxSummaries   int    `yaml:"max_summaries"`
	MaxAlerts      int    `yaml:"max_alerts"`
	MaxAllocations int    `yaml:"max_allocations"`

	// Extraction vocabulary overrides; the built-in tables apply when
	// empty.
	AreaTable       []parse.AreaMapping `yaml:"area_table"`
	TypoCorrections map[string]string   `yaml:"typo_corrections"`
	FallbackRegions []string            `yaml:"fallback_regions"`
	ShiftRegions    []string            `yaml:"shift_regions"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.PruneSchedule, "PRUNE_SCHEDULE")
	envOverrideInt(&cfg.MaxSummaries, "MAX_SUMMARIES")
	envOverrideInt(&cfg.MaxAlerts, "MAX_ALERTS")
	envOverrideInt(&cfg.MaxAllocations, "MAX_ALLOCATIONS")
	envOverrideBool(&cfg.SlackEnabled, "SLACK_ENABLED")

	if channels := os.Getenv("SLACK_CHANNELS"); channels != "" {
		cfg.SlackChannels = nil
		for _, ch := range strings.Split(channels, ",") {
			ch = strings.TrimSpace(ch)
			if ch != "" {
				cfg.SlackChannels = append(cfg.SlackChannels, ch)
			}
		}
	}

	// Defaults
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./copbot.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.PruneSchedule == "" {
		cfg.PruneSchedule = "0 3 * * *"
	}
	if cfg.MaxSummaries == 0 {
		cfg.MaxSummaries = 1000
	}
	if cfg.MaxAlerts == 0 {
		cfg.MaxAlerts = 500
	}
	if cfg.MaxAllocations == 0 {
		cfg.MaxAllocations = 100
	}

	// Validate required fields
	if cfg.SlackEnabled {
		if cfg.SlackBotToken == "" {
			log.Fatalf("Required config 'slack_bot_token' is not set (via config.yaml or env var)")
		}
		if cfg.SlackAppToken == "" {
			log.Fatalf("Required config 'slack_app_token' is not set (via config.yaml or env var)")
		}
	}

	if cfg.MaxSummaries < 1 {
		log.Fatalf("invalid max_summaries '%d': must be >= 1", cfg.MaxSummaries)
	}
	if cfg.MaxAlerts < 1 {
		log.Fatalf("invalid max_alerts '%d': must be >= 1", cfg.MaxAlerts)
	}
	if cfg.MaxAllocations < 1 {
		log.Fatalf("invalid max_allocations '%d': must be >= 1", cfg.MaxAllocations)
	}
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		log.Fatalf("invalid prune_schedule '%s': %v", cfg.PruneSchedule, err)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Timezone = time.Local.String()
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		time.Local = loc
	}

	return cfg
}

// Lexicon builds the region lexicon from the configured overrides, or the
// built-in table when the config carries none.
func (c Config) Lexicon() *parse.Lexicon {
	table := c.AreaTable
	if len(table) == 0 {
		table = parse.DefaultAreaTable()
	}
	typos := c.TypoCorrections
	if len(typos) == 0 {
		typos = parse.DefaultTypoCorrections()
	}
	return parse.NewLexicon(table, typos)
}

// Rules builds the extraction vocabulary from the configured overrides,
// falling back per field to the built-in lists.
func (c Config) Rules() parse.Rules {
	rules := parse.DefaultRules()
	if len(c.FallbackRegions) > 0 {
		rules.FallbackRegions = c.FallbackRegions
	}
	if len(c.ShiftRegions) > 0 {
		rules.ShiftRegions = c.ShiftRegions
	}
	return rules
}

// WatchesChannel reports whether intake should process messages from the
// given channel.
func (c Config) WatchesChannel(id string) bool {
	if len(c.SlackChannels) == 0 {
		return true
	}
	for _, ch := range c.SlackChannels {
		if ch == id {
			return true
		}
	}
	return false
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
