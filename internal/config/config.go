package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadsync-cli/internal/scoring"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Surfe      SurfeConfig      `yaml:"surfe" mapstructure:"surfe"`
	HubSpot    HubSpotConfig    `yaml:"hubspot" mapstructure:"hubspot"`
	Pipedrive  PipedriveConfig  `yaml:"pipedrive" mapstructure:"pipedrive"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Zoom       ZoomConfig       `yaml:"zoom" mapstructure:"zoom"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// SurfeConfig holds enrichment service settings.
type SurfeConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	MaxWaitSecs      int    `yaml:"max_wait_secs" mapstructure:"max_wait_secs"`
	MaxBatch         int    `yaml:"max_batch" mapstructure:"max_batch"`
}

// HubSpotConfig holds HubSpot API settings.
type HubSpotConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	PageLimit int    `yaml:"page_limit" mapstructure:"page_limit"`
}

// PipedriveConfig holds Pipedrive API settings.
type PipedriveConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	PageLimit int    `yaml:"page_limit" mapstructure:"page_limit"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// ZoomConfig holds Zoom API settings and the webinar topics considered
// high-value for deal sizing.
type ZoomConfig struct {
	Token           string   `yaml:"token" mapstructure:"token"`
	BaseURL         string   `yaml:"base_url" mapstructure:"base_url"`
	WebinarID       string   `yaml:"webinar_id" mapstructure:"webinar_id"`
	HighValueTopics []string `yaml:"high_value_topics" mapstructure:"high_value_topics"`
}

// NotionConfig holds Notion API credentials and the leads database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// ScoringConfig configures lead scoring, deal values, and territory
// assignment. Weights, multipliers, and territory default to the built-in
// tables; TablesFile points at a YAML override (see tables.go).
type ScoringConfig struct {
	MinScore      int                 `yaml:"min_score" mapstructure:"min_score"`
	BaseDealValue float64             `yaml:"base_deal_value" mapstructure:"base_deal_value"`
	DefaultOwner  string              `yaml:"default_owner" mapstructure:"default_owner"`
	DenyDomains   []string            `yaml:"deny_domains" mapstructure:"deny_domains"`
	TablesFile    string              `yaml:"tables_file" mapstructure:"tables_file"`
	Weights       scoring.Weights     `yaml:"weights" mapstructure:"weights"`
	Multipliers   scoring.Multipliers `yaml:"multipliers" mapstructure:"multipliers"`
	Territory     map[string]string   `yaml:"territory" mapstructure:"territory"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port          int    `yaml:"port" mapstructure:"port"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "leadsync.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("surfe.base_url", "https://api.surfe.com")
	v.SetDefault("surfe.poll_interval_secs", 5)
	v.SetDefault("surfe.max_wait_secs", 600)
	v.SetDefault("surfe.max_batch", 500)
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.page_limit", 1000)
	v.SetDefault("pipedrive.base_url", "https://api.pipedrive.com/v1")
	v.SetDefault("pipedrive.page_limit", 500)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("zoom.base_url", "https://api.zoom.us/v2")
	v.SetDefault("scoring.min_score", 40)
	v.SetDefault("scoring.base_deal_value", 10000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Scoring.resolveTables(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields required by the given mode ("sync" or
// "serve"), collecting every problem into one error.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "sync":
		if c.Surfe.Key == "" {
			problems = append(problems, "surfe.key is required")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
		if c.Scoring.MinScore < 0 || c.Scoring.MinScore > 100 {
			problems = append(problems, "scoring.min_score must be between 0 and 100")
		}
		if c.Scoring.BaseDealValue < 0 {
			problems = append(problems, "scoring.base_deal_value must be >= 0")
		}
	case "serve":
		if c.Surfe.Key == "" {
			problems = append(problems, "surfe.key is required")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.WebhookSecret == "" {
			problems = append(problems, "server.webhook_secret is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// SourceCredentials checks that the named source's credentials are set.
func (c *Config) SourceCredentials(source string) error {
	switch source {
	case "hubspot":
		if c.HubSpot.Token == "" {
			return eris.New("config: hubspot.token is required")
		}
	case "pipedrive":
		if c.Pipedrive.Token == "" {
			return eris.New("config: pipedrive.token is required")
		}
	case "zoom":
		if c.Zoom.Token == "" {
			return eris.New("config: zoom.token is required")
		}
	case "notion":
		if c.Notion.Token == "" || c.Notion.LeadDB == "" {
			return eris.New("config: notion.token and notion.lead_db are required")
		}
	default:
		return eris.Errorf("config: unknown source %q", source)
	}
	return nil
}

// TargetCredentials checks that the named target's credentials are set.
func (c *Config) TargetCredentials(target string) error {
	switch target {
	case "hubspot":
		if c.HubSpot.Token == "" {
			return eris.New("config: hubspot.token is required")
		}
	case "pipedrive":
		if c.Pipedrive.Token == "" {
			return eris.New("config: pipedrive.token is required")
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" || c.Salesforce.Username == "" || c.Salesforce.KeyPath == "" {
			return eris.New("config: salesforce.client_id, username, and key_path are required")
		}
	default:
		return eris.Errorf("config: unknown target %q", target)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
