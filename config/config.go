package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Server struct {
	ListenAddr     string `env:"LISTEN_ADDR, default=0.0.0.0:8080"`
	DBPath         string `env:"DB_PATH, default=timeclock.db"`
	Dev            bool   `env:"DEV, default=false"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS, default=http://localhost:5173"`
	LogLevel       string `env:"LOG_LEVEL, default=info"`
}

// Origins splits AllowedOrigins on commas.
func (s Server) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type Org struct {
	Timezone     string `env:"TIMEZONE, default=America/Mexico_City"`
	Name         string `env:"NAME"`
	TaxID        string `env:"TAX_ID"`
	MaxRangeDays int    `env:"MAX_RANGE_DAYS, default=366"`

	loc *time.Location
}

// Location is the organisation's wall clock. Valid after Load.
func (o Org) Location() *time.Location {
	if o.loc == nil {
		return time.UTC
	}
	return o.loc
}

type Recognition struct {
	Endpoint  string        `env:"ENDPOINT"`
	Timeout   time.Duration `env:"TIMEOUT, default=5s"`
	Threshold float64       `env:"THRESHOLD, default=98"`
}

type Cache struct {
	Enabled bool          `env:"ENABLED, default=true"`
	MaxCost int64         `env:"MAX_COST, default=10000"`
	TTL     time.Duration `env:"TTL, default=10m"`
}

type Config struct {
	Server      Server      `env:",prefix=TIMECLOCK_SERVER_"`
	Org         Org         `env:",prefix=TIMECLOCK_ORG_"`
	Recognition Recognition `env:",prefix=TIMECLOCK_RECOGNITION_"`
	Cache       Cache       `env:",prefix=TIMECLOCK_CACHE_"`
}

func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration through l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	})
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Org.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMECLOCK_ORG_TIMEZONE %q: %w", cfg.Org.Timezone, err)
	}
	cfg.Org.loc = loc

	if cfg.Org.MaxRangeDays <= 0 {
		return nil, fmt.Errorf("TIMECLOCK_ORG_MAX_RANGE_DAYS must be positive, got %d", cfg.Org.MaxRangeDays)
	}
	if cfg.Recognition.Threshold < 0 || cfg.Recognition.Threshold > 100 {
		return nil, fmt.Errorf("TIMECLOCK_RECOGNITION_THRESHOLD must be within 0-100, got %v", cfg.Recognition.Threshold)
	}

	return &cfg, nil
}
