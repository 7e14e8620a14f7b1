package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Shops        ShopsConfig
	Checkout     CheckoutConfig
	Audit        AuditConfig
	Nexi         NexiConfig
	Invoice      InvoiceConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Audit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"HEIZOEL_APP_ENV" required:"true"`
	Port         string   `envconfig:"HEIZOEL_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"HEIZOEL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"HEIZOEL_LOG_WARN_STACK" default:"false"`
	PublicURL    string   `envconfig:"HEIZOEL_PUBLIC_URL" default:"http://localhost:8080"`
	CORSOrigins  []string `envconfig:"HEIZOEL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"HEIZOEL_DB_DSN"`

	LegacyHost     string `envconfig:"HEIZOEL_DB_HOST"`
	LegacyPort     int    `envconfig:"HEIZOEL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HEIZOEL_DB_USER"`
	LegacyPassword string `envconfig:"HEIZOEL_DB_PASSWORD"`
	LegacyName     string `envconfig:"HEIZOEL_DB_NAME"`
	LegacySSLMode  string `envconfig:"HEIZOEL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HEIZOEL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HEIZOEL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HEIZOEL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HEIZOEL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"HEIZOEL_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HEIZOEL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HEIZOEL_REDIS_ADDR"`
	Password     string        `envconfig:"HEIZOEL_REDIS_PASSWORD"`
	DB           int           `envconfig:"HEIZOEL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HEIZOEL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HEIZOEL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HEIZOEL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HEIZOEL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HEIZOEL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HEIZOEL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HEIZOEL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HEIZOEL_JWT_EXPIRATION_MINUTES" default:"480"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"HEIZOEL_AUTO_MIGRATE" default:"false"`
	LiveRedis   bool `envconfig:"HEIZOEL_LIVE_REDIS" default:"true"`
}

// ShopsConfig lets deployments override the domain to shop mapping, e.g.
// "mazout.example.be:belgium,heizoel.example.at:austria".
type ShopsConfig struct {
	Domains      map[string]string `envconfig:"HEIZOEL_SHOP_DOMAINS"`
	DefaultShop  string            `envconfig:"HEIZOEL_SHOP_DEFAULT" default:"germany"`
	ReferrerPath string            `envconfig:"HEIZOEL_SHOP_BELGIAN_REFERRER" default:"/7/home"`
	CookieName   string            `envconfig:"HEIZOEL_SHOP_REFERRER_COOKIE" default:"order_referrer"`
}

type CheckoutConfig struct {
	SupplierPolicy    string `envconfig:"HEIZOEL_SUPPLIER_SELECTION_POLICY" default:"first"`
	BankAccountPolicy string `envconfig:"HEIZOEL_BANK_ACCOUNT_SELECTION_POLICY" default:"first"`
}

func (c CheckoutConfig) validate() error {
	for name, value := range map[string]string{
		EnvSupplierPolicy:    c.SupplierPolicy,
		EnvBankAccountPolicy: c.BankAccountPolicy,
	} {
		if !isOneOf(value, SelectionPolicyFirst, SelectionPolicyRejectAmbiguous) {
			return fmt.Errorf("%s must be %q or %q", name, SelectionPolicyFirst, SelectionPolicyRejectAmbiguous)
		}
	}
	return nil
}

type AuditConfig struct {
	Actor            string `envconfig:"HEIZOEL_AUDIT_ACTOR" default:"admin"`
	TransitionPolicy string `envconfig:"HEIZOEL_STATUS_TRANSITION_POLICY" default:"free"`
	MergePolicy      string `envconfig:"HEIZOEL_LIVE_MERGE_POLICY" default:"append"`
}

func (a AuditConfig) validate() error {
	if !isOneOf(a.TransitionPolicy, TransitionPolicyFree, TransitionPolicyStrict) {
		return fmt.Errorf("%s must be %q or %q", EnvTransitionPolicy, TransitionPolicyFree, TransitionPolicyStrict)
	}
	if !isOneOf(a.MergePolicy, MergePolicyAppend, MergePolicyUpsert) {
		return fmt.Errorf("%s must be %q or %q", EnvMergePolicy, MergePolicyAppend, MergePolicyUpsert)
	}
	return nil
}

type NexiConfig struct {
	Alias          string        `envconfig:"HEIZOEL_NEXI_ALIAS"`
	SecretKey      string        `envconfig:"HEIZOEL_NEXI_SECRET_KEY"`
	Env            string        `envconfig:"HEIZOEL_NEXI_ENV" default:"test"`
	BaseURL        string        `envconfig:"HEIZOEL_NEXI_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"HEIZOEL_NEXI_TIMEOUT" default:"15s"`
	HandoffTTL     time.Duration `envconfig:"HEIZOEL_PAYMENT_HANDOFF_TTL" default:"30m"`
}

// Environment returns the normalized gateway environment (test/live).
func (n NexiConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(n.Env))
	if env == "" {
		return "test"
	}
	return env
}

type InvoiceConfig struct {
	FunctionURL    string        `envconfig:"HEIZOEL_INVOICE_FUNCTION_URL"`
	APIKey         string        `envconfig:"HEIZOEL_INVOICE_FUNCTION_KEY"`
	RequestTimeout time.Duration `envconfig:"HEIZOEL_INVOICE_TIMEOUT" default:"20s"`
	PrintDelay     time.Duration `envconfig:"HEIZOEL_INVOICE_PRINT_DELAY" default:"500ms"`
}

// RateLimitConfig throttles public storefront writes per client IP. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"HEIZOEL_RATE_LIMIT_RPS" default:"2"`
	Burst             int     `envconfig:"HEIZOEL_RATE_LIMIT_BURST" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"HEIZOEL_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"HEIZOEL_PUBSUB_ORDERS_TOPIC" default:"heizoel-order-events"`
	OrdersSubscription string `envconfig:"HEIZOEL_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"HEIZOEL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"HEIZOEL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"HEIZOEL_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"HEIZOEL_OUTBOX_METRICS_ADDR" default:":9102"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func isOneOf(value string, allowed ...string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(value), candidate) {
			return true
		}
	}
	return false
}
