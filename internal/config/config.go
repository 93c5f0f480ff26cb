package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
	"github.com/clinicpulse/clinicpulse/internal/domain/strategy"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	RequestTimeoutSec int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	BodyLimitDefault  string  `mapstructure:"BODY_LIMIT"`
	BodyLimitUpload   string  `mapstructure:"BODY_LIMIT_UPLOAD"`
	RateLimitRPS      float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int     `mapstructure:"RATE_LIMIT_BURST"`

	ModelPath      string `mapstructure:"MODEL_PATH"`
	UploadRowLimit int    `mapstructure:"UPLOAD_ROW_LIMIT"`

	SimDoctors           int     `mapstructure:"SIM_DOCTORS"`
	SimSlotsPerDay       int     `mapstructure:"SIM_SLOTS_PER_DAY"`
	SimAvgAppointmentMin float64 `mapstructure:"SIM_AVG_APPOINTMENT_MINUTES"`
	SimClinicHours       float64 `mapstructure:"SIM_CLINIC_HOURS"`
	SimSeed              int64   `mapstructure:"SIM_SEED"`

	SweepMaxOverbooking int     `mapstructure:"SWEEP_MAX_OVERBOOKING"`
	SweepStep           int     `mapstructure:"SWEEP_STEP"`
	WeightWaitTime      float64 `mapstructure:"WEIGHT_WAIT_TIME"`
	WeightUtilization   float64 `mapstructure:"WEIGHT_UTILIZATION"`
	WeightSatisfaction  float64 `mapstructure:"WEIGHT_SATISFACTION"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("BODY_LIMIT_UPLOAD", "10M")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MODEL_PATH", "model/noshow_model.json")
	v.SetDefault("UPLOAD_ROW_LIMIT", 100)
	v.SetDefault("SIM_DOCTORS", 3)
	v.SetDefault("SIM_SLOTS_PER_DAY", 20)
	v.SetDefault("SIM_AVG_APPOINTMENT_MINUTES", 30)
	v.SetDefault("SIM_CLINIC_HOURS", 8)
	v.SetDefault("SIM_SEED", 1)
	v.SetDefault("SWEEP_MAX_OVERBOOKING", 30)
	v.SetDefault("SWEEP_STEP", 5)
	v.SetDefault("WEIGHT_WAIT_TIME", strategy.DefaultWeights.WaitTime)
	v.SetDefault("WEIGHT_UTILIZATION", strategy.DefaultWeights.Utilization)
	v.SetDefault("WEIGHT_SATISFACTION", strategy.DefaultWeights.Satisfaction)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("BODY_LIMIT_UPLOAD")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("MODEL_PATH")
	v.BindEnv("UPLOAD_ROW_LIMIT")
	v.BindEnv("SIM_DOCTORS")
	v.BindEnv("SIM_SLOTS_PER_DAY")
	v.BindEnv("SIM_AVG_APPOINTMENT_MINUTES")
	v.BindEnv("SIM_CLINIC_HOURS")
	v.BindEnv("SIM_SEED")
	v.BindEnv("SWEEP_MAX_OVERBOOKING")
	v.BindEnv("SWEEP_STEP")
	v.BindEnv("WEIGHT_WAIT_TIME")
	v.BindEnv("WEIGHT_UTILIZATION")
	v.BindEnv("WEIGHT_SATISFACTION")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesPostgres reports whether uploads should persist to Postgres. Without
// DATABASE_URL the server runs on the in-memory store.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// SimulationDefaults is the baseline clinic the dashboard and optimizer
// simulate when a request does not override it.
func (c *Config) SimulationDefaults() simulation.Parameters {
	return simulation.Parameters{
		Doctors:           c.SimDoctors,
		SlotsPerDay:       c.SimSlotsPerDay,
		AvgAppointmentMin: c.SimAvgAppointmentMin,
		ClinicHours:       c.SimClinicHours,
		Seed:              c.SimSeed,
	}
}

// ScoreWeights is the optimizer's configured scoring surface.
func (c *Config) ScoreWeights() strategy.Weights {
	return strategy.Weights{
		WaitTime:     c.WeightWaitTime,
		Utilization:  c.WeightUtilization,
		Satisfaction: c.WeightSatisfaction,
	}
}

// SweepDefaults are the optimizer's configured search bounds and scoring
// surface, applied when an optimize request does not set its own.
func (c *Config) SweepDefaults() strategy.SweepDefaults {
	return strategy.SweepDefaults{
		MaxOverbookingPct: c.SweepMaxOverbooking,
		StepPct:           c.SweepStep,
		Weights:           c.ScoreWeights(),
	}
}

// Validate checks that the configuration can actually drive the engine:
// the baseline simulation parameters and score weights are exercised on
// every dashboard request, so a bad value fails startup, not a request.
func (c *Config) Validate() error {
	if err := c.SimulationDefaults().Validate(); err != nil {
		return fmt.Errorf("simulation defaults: %w", err)
	}
	if err := c.ScoreWeights().Validate(); err != nil {
		return fmt.Errorf("score weights: %w", err)
	}
	if c.SweepMaxOverbooking < 0 || c.SweepMaxOverbooking > 100 {
		return fmt.Errorf("SWEEP_MAX_OVERBOOKING must be in [0,100], got %d", c.SweepMaxOverbooking)
	}
	if c.SweepStep < 1 {
		return fmt.Errorf("SWEEP_STEP must be >= 1, got %d", c.SweepStep)
	}
	if c.UploadRowLimit < 1 {
		return fmt.Errorf("UPLOAD_ROW_LIMIT must be >= 1, got %d", c.UploadRowLimit)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if c.RequestTimeoutSec < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be >= 1, got %d", c.RequestTimeoutSec)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit: %g rps, burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}
