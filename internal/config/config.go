// Package config loads and validates progress service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Publisher backends.
const (
	PublisherNone   = "none"
	PublisherPubSub = "pubsub"
	PublisherKafka  = "kafka"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Store     StoreConfig     `mapstructure:"store"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	DB        DBConfig        `mapstructure:"db"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Events    EventsConfig    `mapstructure:"events"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CORSConfig names the single browser origin allowed to call the API.
type CORSConfig struct {
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend          string        `mapstructure:"backend"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// FirebaseConfig holds the service-account fields for Firestore.
type FirebaseConfig struct {
	ProjectID               string `mapstructure:"project_id"`
	PrivateKeyID            string `mapstructure:"private_key_id"`
	PrivateKey              string `mapstructure:"private_key"`
	ClientEmail             string `mapstructure:"client_email"`
	ClientID                string `mapstructure:"client_id"`
	ClientX509CertURL       string `mapstructure:"client_x509_cert_url"`
	AuthURI                 string `mapstructure:"auth_uri"`
	TokenURI                string `mapstructure:"token_uri"`
	AuthProviderX509CertURL string `mapstructure:"auth_provider_x509_cert_url"`
	Collection              string `mapstructure:"collection"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// PublisherConfig selects where change notifications go.
type PublisherConfig struct {
	Backend string `mapstructure:"backend"`
}

// PubSubConfig holds metadata for Pub/Sub notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// KafkaConfig holds metadata for Kafka notifications.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// EventsConfig tunes the change-event hub.
type EventsConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	LogChanges     bool          `mapstructure:"log_changes"`
	Metrics        bool          `mapstructure:"metrics"`
	Watch          bool          `mapstructure:"watch"`
}

// TracingConfig toggles OpenTelemetry span creation and propagation.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// envAliases lists extra environment variable names accepted for a key, in
// addition to the derived FOO_BAR form.
var envAliases = map[string][]string{
	"server.port":                   {"PORT"},
	"firebase.private_key_id":       {"PRIVATE_KEY_ID"},
	"firebase.private_key":          {"PRIVATE_KEY"},
	"firebase.client_email":         {"CLIENT_EMAIL"},
	"firebase.client_id":            {"CLIENT_ID"},
	"firebase.client_x509_cert_url": {"CLIENT_X509_CERT_URL"},
}

// Load builds a Config from an optional file plus the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("cors.allowed_origin", "https://starfox1230.github.io")
	v.SetDefault("store.backend", StoreFirestore)
	v.SetDefault("store.operation_timeout", 5*time.Second)
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.private_key_id", "")
	v.SetDefault("firebase.private_key", "")
	v.SetDefault("firebase.client_email", "")
	v.SetDefault("firebase.client_id", "")
	v.SetDefault("firebase.client_x509_cert_url", "")
	v.SetDefault("firebase.auth_uri", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("firebase.token_uri", "https://oauth2.googleapis.com/token")
	v.SetDefault("firebase.auth_provider_x509_cert_url", "https://www.googleapis.com/oauth2/v1/certs")
	v.SetDefault("firebase.collection", "progress")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.auto_migrate", false)
	v.SetDefault("publisher.backend", PublisherNone)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")
	v.SetDefault("events.buffer_size", 1024)
	v.SetDefault("events.max_batch_events", 100)
	v.SetDefault("events.max_batch_wait", 500*time.Millisecond)
	v.SetDefault("events.log_changes", false)
	v.SetDefault("events.metrics", true)
	v.SetDefault("events.watch", true)
	v.SetDefault("tracing.enabled", true)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

func bindEnv(v *viper.Viper) error {
	for key, aliases := range envAliases {
		names := append([]string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Publisher.Backend = strings.ToLower(strings.TrimSpace(c.Publisher.Backend))
	if c.Publisher.Backend == "" {
		c.Publisher.Backend = PublisherNone
	}
	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	c.Kafka.Brokers = brokers
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Store.OperationTimeout <= 0 {
		return fmt.Errorf("store.operation_timeout must be > 0")
	}
	if strings.TrimSpace(c.CORS.AllowedOrigin) == "" {
		return fmt.Errorf("cors.allowed_origin must be set")
	}
	switch c.Store.Backend {
	case StoreFirestore:
		if err := c.Firebase.validate(); err != nil {
			return err
		}
	case StorePostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when store.backend is postgres")
		}
		if c.DB.MaxConns <= 0 {
			return fmt.Errorf("db.max_conns must be > 0")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("store.backend %q is not one of firestore, postgres, memory", c.Store.Backend)
	}
	switch c.Publisher.Backend {
	case PublisherNone:
	case PublisherPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when publisher.backend is pubsub")
		}
	case PublisherKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.brokers and kafka.topic must be set when publisher.backend is kafka")
		}
	default:
		return fmt.Errorf("publisher.backend %q is not one of none, pubsub, kafka", c.Publisher.Backend)
	}
	return nil
}

func (f FirebaseConfig) validate() error {
	var missing []string
	for name, val := range map[string]string{
		"firebase.project_id":           f.ProjectID,
		"firebase.private_key_id":       f.PrivateKeyID,
		"firebase.private_key":          f.PrivateKey,
		"firebase.client_email":         f.ClientEmail,
		"firebase.client_id":            f.ClientID,
		"firebase.client_x509_cert_url": f.ClientX509CertURL,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return errors.New("missing required settings for firestore: " + strings.Join(missing, ", "))
}
