package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends supported by the counter store factory.
const (
	StoreBackendMemory = "memory"
	StoreBackendBadger = "badger"
	StoreBackendRedis  = "redis"
)

type Config struct {
	Service    Service    `envconfig:"SERVICE"`
	Detector   Detector   `envconfig:"DETECTOR"`
	Store      Store      `envconfig:"STORE"`
	Badger     Badger     `envconfig:"BADGER"`
	Redis      Redis      `envconfig:"REDIS"`
	Beacon     Beacon     `envconfig:"BEACON"`
	Pixel      Pixel      `envconfig:"PIXEL"`
	SQS        SQS        `envconfig:"SQS"`
	ClickHouse ClickHouse `envconfig:"CLICKHOUSE"`
	Consumer   Consumer   `envconfig:"CONSUMER"`
	RateLimit  RateLimit  `envconfig:"RATE_LIMIT"`
}

type Service struct {
	Environment string `envconfig:"ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"API_PORT" default:"8080"`
	Host        string `envconfig:"HOST" default:"localhost:8080"`
}

// Detector holds the gesture thresholds and the page environment the detector runs in.
type Detector struct {
	Port           string        `envconfig:"PORT" default:"8082"`
	TracePath      string        `envconfig:"TRACE_PATH"`
	ElementPrefix  string        `envconfig:"ELEMENT_PREFIX" default:"div-gpt-ad-"`
	ScanInterval   time.Duration `envconfig:"SCAN_INTERVAL" default:"2s"`
	GuardOffset    float64       `envconfig:"GUARD_OFFSET" default:"50"`
	MoveThreshold  float64       `envconfig:"MOVE_THRESHOLD" default:"10"`
	MinTapDuration time.Duration `envconfig:"MIN_TAP_DURATION" default:"50ms"`
	MaxTapDuration time.Duration `envconfig:"MAX_TAP_DURATION" default:"500ms"`
	GracePeriod    time.Duration `envconfig:"GRACE_PERIOD" default:"100ms"`
	DedupWindow    time.Duration `envconfig:"DEDUP_WINDOW" default:"72h"`
	PageURL        string        `envconfig:"PAGE_URL"`
	UserAgent      string        `envconfig:"USER_AGENT"`
	Platform       string        `envconfig:"PLATFORM"`
	ScreenWidth    int           `envconfig:"SCREEN_WIDTH" default:"390"`
	ScreenHeight   int           `envconfig:"SCREEN_HEIGHT" default:"844"`
	MaxTouchPoints int           `envconfig:"MAX_TOUCH_POINTS" default:"5"`
}

type Store struct {
	Backend   string `envconfig:"BACKEND" default:"memory"`
	KeyPrefix string `envconfig:"KEY_PREFIX"`
}

type Badger struct {
	Path string `envconfig:"PATH" default:"./data/counters"`
}

type Redis struct {
	Address  string `envconfig:"ADDRESS" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

type Beacon struct {
	URL         string        `envconfig:"URL"`
	IPLookupURL string        `envconfig:"IP_LOOKUP_URL" default:"https://api.ipify.org?format=json"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

// Pixel configures the Meta Conversions API sink. The sink is disabled when ID or AccessToken is empty.
type Pixel struct {
	ID            string        `envconfig:"ID"`
	AccessToken   string        `envconfig:"ACCESS_TOKEN"`
	Endpoint      string        `envconfig:"ENDPOINT" default:"https://graph.facebook.com"`
	APIVersion    string        `envconfig:"API_VERSION" default:"v18.0"`
	EventName     string        `envconfig:"EVENT_NAME" default:"user_c"`
	TimeZone      string        `envconfig:"TIME_ZONE" default:"Asia/Shanghai"`
	TestEventCode string        `envconfig:"TEST_EVENT_CODE"`
	Timeout       time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type SQS struct {
	Endpoint string `envconfig:"ENDPOINT"`
	QueueURL string `envconfig:"QUEUE_URL"`
	Region   string `envconfig:"REGION" default:"us-east-1"`
}

type ClickHouse struct {
	Host            string `envconfig:"HOST"`
	Port            string `envconfig:"PORT" default:"9000"`
	Database        string `envconfig:"DB" default:"adclicks"`
	User            string `envconfig:"USER" default:""`
	Password        string `envconfig:"PASSWORD" default:""`
	UseTLS          bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Consumer struct {
	BatchSizeMin    int    `envconfig:"BATCH_SIZE_MIN" default:"100"`
	BatchSizeMax    int    `envconfig:"BATCH_SIZE_MAX" default:"2000"`
	BatchTimeoutSec int    `envconfig:"BATCH_TIMEOUT_SEC" default:"10"`
	HealthCheckPort string `envconfig:"HEALTH_CHECK_PORT" default:"8081"`
}

type RateLimit struct {
	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" default:"5"`
	Burst             int     `envconfig:"BURST" default:"20"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory, StoreBackendBadger, StoreBackendRedis:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q (supported: memory, badger, redis)", c.Store.Backend)
	}

	if c.Detector.MinTapDuration < 0 || c.Detector.MinTapDuration >= c.Detector.MaxTapDuration {
		return fmt.Errorf("tap duration bounds must satisfy 0 <= min < max, got %s..%s",
			c.Detector.MinTapDuration, c.Detector.MaxTapDuration)
	}
	if c.Detector.GracePeriod < 0 {
		return fmt.Errorf("grace period cannot be negative: %s", c.Detector.GracePeriod)
	}
	if c.Detector.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive: %s", c.Detector.DedupWindow)
	}
	if c.Detector.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive: %s", c.Detector.ScanInterval)
	}

	return nil
}

// ValidateCollector checks the settings the beacon collector binaries need on top of Validate.
func (c *Config) ValidateCollector() error {
	if c.SQS.QueueURL == "" {
		return errors.New("SQS_QUEUE_URL is required")
	}
	if c.ClickHouse.Host == "" {
		return errors.New("CLICKHOUSE_HOST is required")
	}
	return nil
}
