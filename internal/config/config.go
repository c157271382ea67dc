package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr       string `mapstructure:"addr"`
		LogLevel   string `mapstructure:"log_level"`
		LogFormat  string `mapstructure:"log_format"`
		RunOnStart bool   `mapstructure:"run_on_start"`
	} `mapstructure:"server"`

	Storage struct {
		Driver     string `mapstructure:"driver"` // memory | postgres | sqlite
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"storage"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Customers struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"customers"`

	Templates []TemplateFile `mapstructure:"templates"`

	Sender struct {
		OutputDir string        `mapstructure:"output_dir"`
		Cooldown  time.Duration `mapstructure:"cooldown"`
	} `mapstructure:"sender"`

	Scheduling struct {
		Timezone string `mapstructure:"timezone"`
		FailFast bool   `mapstructure:"fail_fast"`
	} `mapstructure:"scheduling"`

	Campaigns []CampaignConfig `mapstructure:"campaigns"`
}

type TemplateFile struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// CampaignConfig is one entry of the ordered campaign list.
// SendAt is either an absolute RFC 3339 timestamp or "HH:MM" on the pass date.
type CampaignConfig struct {
	Template string       `mapstructure:"template"`
	Filter   FilterConfig `mapstructure:"filter"`
	SendAt   string       `mapstructure:"send_at"`
	Priority int          `mapstructure:"priority"`
}

type FilterConfig struct {
	Kind    string         `mapstructure:"kind"`
	Value   string         `mapstructure:"value"`
	Clauses []FilterConfig `mapstructure:"clauses"`
}

func Load() Config {
	_ = godotenv.Load() // .env is optional; never overrides real env

	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("unable to decode config: %w", err))
	}
	validate(&cfg)
	return cfg
}

// setDefaults registers scalar keys so AutomaticEnv can override them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("server.run_on_start", true)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "data/jobs.db")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "campaigns")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("listener.channel", "")
	v.SetDefault("listener.reconnect_seconds", 5)
	v.SetDefault("customers.path", "customers.csv")
	v.SetDefault("sender.output_dir", ".")
	v.SetDefault("sender.cooldown", "30m")
	v.SetDefault("scheduling.timezone", "Local")
	v.SetDefault("scheduling.fail_fast", false)
}

func validate(c *Config) {
	if c.Server.Addr == "" { c.Server.Addr = ":8080" }
	if c.Storage.Driver == "" { c.Storage.Driver = "memory" }
	if c.Postgres.Port == 0 { c.Postgres.Port = 5432 }
	if c.Postgres.SSLMode == "" { c.Postgres.SSLMode = "disable" }
	if c.Postgres.MaxOpenConns == 0 { c.Postgres.MaxOpenConns = 10 }
	if c.Postgres.MaxIdleConns == 0 { c.Postgres.MaxIdleConns = 10 }
	if c.Listener.ReconnectSeconds <= 0 { c.Listener.ReconnectSeconds = 5 }
	if c.Customers.Path == "" { c.Customers.Path = "customers.csv" }
	if c.Sender.OutputDir == "" { c.Sender.OutputDir = "." }
	if c.Sender.Cooldown < 0 { c.Sender.Cooldown = 0 }
	if c.Scheduling.Timezone == "" { c.Scheduling.Timezone = "Local" }
	if len(c.Templates) == 0 { c.Templates = DefaultTemplates() }
	if len(c.Campaigns) == 0 { c.Campaigns = DefaultCampaigns() }
}

func DefaultTemplates() []TemplateFile {
	return []TemplateFile{
		{Name: "Template A", Path: "Templates/TemplateA.html"},
		{Name: "Template B", Path: "Templates/TemplateB.html"},
		{Name: "Template C", Path: "Templates/TemplateC.html"},
	}
}

// DefaultCampaigns is the stock campaign list used when none is configured.
func DefaultCampaigns() []CampaignConfig {
	return []CampaignConfig{
		{Template: "Template A", Filter: FilterConfig{Kind: "gender_equals", Value: "Male"}, SendAt: "10:15", Priority: 1},
		{Template: "Template B", Filter: FilterConfig{Kind: "age_above", Value: "45"}, SendAt: "10:05", Priority: 2},
		{Template: "Template C", Filter: FilterConfig{Kind: "city_equals", Value: "New York"}, SendAt: "10:10", Priority: 5},
		{Template: "Template A", Filter: FilterConfig{Kind: "deposit_above", Value: "100"}, SendAt: "10:15", Priority: 3},
		{Template: "Template C", Filter: FilterConfig{Kind: "new_customer"}, SendAt: "10:05", Priority: 4},
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

// Location resolves the scheduling timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	switch c.Scheduling.Timezone {
	case "", "Local":
		return time.Local
	}
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
