package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/storm-feature-detect/internal/domain"
)

var validate = validator.New()

// Config holds all service settings, populated from environment variables.
type Config struct {
	InputFile        string `validate:"required"`
	ConnectivityFile string
	Regional         bool

	Fields FieldNames

	Cyclone CycloneConfig
	River   RiverConfig

	KafkaBrokers    []string `validate:"min=1,dive,required"`
	KafkaSinkTopic  string   `validate:"required"`
	HTTPAddr        string   `validate:"required"`
	LogLevel        string   `validate:"oneof=debug info warn error"`
	LogFormat       string   `validate:"oneof=json text"`
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration `validate:"gt=0"`
	MapboxCacheSize int           `validate:"gt=0"`
	MapboxRateLimit float64       `validate:"gte=0"` // requests per second, 0 = unlimited
}

// FieldNames are the archive variable names the cyclone pass reads.
type FieldNames struct {
	PSL  string `validate:"required"`
	U    string `validate:"required"`
	V    string `validate:"required"`
	T200 string `validate:"required"`
	T500 string `validate:"required"`
}

// CycloneConfig configures the pressure-minimum candidate pass.
type CycloneConfig struct {
	Proximity      domain.ProximityRule
	MinLaplacian   float64 `validate:"gte=0"`
	LaplacianSize  int     `validate:"gte=1"`
	WindSearchDist float64 `validate:"gte=0,lte=180"`
	OutputOps      []domain.OutputOp
}

// RiverConfig configures the moisture-filament segmentation pass.
type RiverConfig struct {
	Enabled       bool
	Var           string  `validate:"required"`
	LaplacianSize int     `validate:"gte=1"`
	MinLaplacian  float64 `validate:"gte=0"`
	MinAbsLat     float64 `validate:"gte=0,lte=90"`
	MinValue      float64
	ZonalMeanWt   float64 `validate:"gte=0"`
	ZonalMaxWt    float64 `validate:"gte=0"`
	MeridMeanWt   float64 `validate:"gte=0"`
	MeridMaxWt    float64 `validate:"gte=0"`
	MinArea       int     `validate:"gte=0"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	p := &parser{}
	cyclone := CycloneConfig{
		MinLaplacian:   p.float("MIN_LAPLACIAN", 0),
		LaplacianSize:  p.int("LAPLACIAN_SIZE", 1),
		WindSearchDist: p.float("WIND_SEARCH_DIST", 0),
	}
	mapboxRate := p.float("MAPBOX_RATE_LIMIT", 10)
	warm := p.float("WARM_CORE_DIST", 0)
	noWarm := p.float("NO_WARM_CORE_DIST", 0)
	river := RiverConfig{
		Enabled:       p.bool("AR_ENABLED", false),
		Var:           sharedcfg.EnvOrDefault("AR_VAR", "IWV"),
		LaplacianSize: p.int("AR_LAPLACIAN_SIZE", 5),
		MinLaplacian:  p.float("AR_MIN_LAPLACIAN", 1.523),
		MinAbsLat:     p.float("AR_MIN_ABS_LAT", 15),
		MinValue:      p.float("AR_MIN_VALUE", 20),
		ZonalMeanWt:   p.float("AR_ZONAL_MEAN_WT", 0.7),
		ZonalMaxWt:    p.float("AR_ZONAL_MAX_WT", 0.3),
		MeridMeanWt:   p.float("AR_MERID_MEAN_WT", 0.9),
		MeridMaxWt:    p.float("AR_MERID_MAX_WT", 0.1),
		MinArea:       p.int("AR_MIN_AREA", 0),
	}
	regional := p.bool("REGIONAL", false)
	if p.err != nil {
		return nil, p.err
	}

	cyclone.Proximity, err = domain.ProximityFromDistances(warm, noWarm)
	if err != nil {
		return nil, err
	}
	cyclone.OutputOps, err = domain.ParseOutputOps(os.Getenv("OUTPUT_OPS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputFile:        os.Getenv("INPUT_FILE"),
		ConnectivityFile: os.Getenv("CONNECTIVITY_FILE"),
		Regional:         regional,
		Fields: FieldNames{
			PSL:  sharedcfg.EnvOrDefault("PSL_VAR", "PSL"),
			U:    sharedcfg.EnvOrDefault("U_VAR", "U850"),
			V:    sharedcfg.EnvOrDefault("V_VAR", "V850"),
			T200: sharedcfg.EnvOrDefault("T200_VAR", "T200"),
			T500: sharedcfg.EnvOrDefault("T500_VAR", "T500"),
		},
		Cyclone: cyclone,
		River:   river,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "storm-feature-candidates"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxRateLimit: mapboxRate,
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// RequiredFields lists every archive variable a detection pass will read.
func (c *Config) RequiredFields() []string {
	names := []string{c.Fields.PSL, c.Fields.U, c.Fields.V}
	if c.Cyclone.Proximity.Mode() != domain.ProximityNone {
		names = append(names, c.Fields.T200, c.Fields.T500)
	}
	for _, op := range c.Cyclone.OutputOps {
		names = append(names, op.Var)
	}
	if c.River.Enabled {
		names = append(names, c.River.Var)
	}
	return dedupe(names)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// parser accumulates the first parse error across several variables.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != "" && p.err == nil
}

func (p *parser) fail(key, v string, err error) {
	p.err = fmt.Errorf("%w: invalid %s %q: %w", domain.ErrConfiguration, key, v, err)
}

func (p *parser) float(key string, fallback float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) int(key string, fallback int) int {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
