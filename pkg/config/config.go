// Package config loads console settings from defaults, an optional YAML file,
// a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"lora-console/pkg/logger"
	"lora-console/pkg/model"
)

// Config is the full console configuration.
type Config struct {
	Addr    string        `yaml:"addr"`
	UIDir   string        `yaml:"ui_dir"`
	DevMode bool          `yaml:"dev_mode"`
	Log     logger.Config `yaml:"log"`
	TLS     TLSConfig     `yaml:"tls"`

	TTN       TTNConfig       `yaml:"ttn"`
	Locations LocationsConfig `yaml:"locations"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	MQTT      model.MQTTInfo  `yaml:"mqtt"`
}

// TLSConfig enables HTTPS on the console listener; ClientCA turns on mTLS.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	ClientCA string `yaml:"client_ca"`
}

// Enabled reports whether both halves of the key pair are set.
func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

// TTNConfig points at the upstream network server API.
type TTNConfig struct {
	APIURL                   string        `yaml:"api_url"`
	Insecure                 bool          `yaml:"insecure"`
	Timeout                  time.Duration `yaml:"timeout"`
	NetworkServerAddress     string        `yaml:"network_server_address"`
	ApplicationServerAddress string        `yaml:"application_server_address"`
	JoinServerAddress        string        `yaml:"join_server_address"`
}

// LocationsConfig describes the DT-723 node report source.
type LocationsConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
	SnapshotPath string        `yaml:"snapshot_path"` // sqlite cache; empty disables
}

// StoreConfig selects the registry backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"` // memory|consul
	ConsulAddr string `yaml:"consul_addr"`
}

// SessionConfig controls console session tokens and their persistence.
type SessionConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TTL       time.Duration `yaml:"ttl"`
	SealKey   string        `yaml:"seal_key"`
	MySQLDSN  string        `yaml:"mysql_dsn"` // empty keeps sessions in memory
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:  ":8080",
		UIDir: "web",
		Log:   logger.Config{Level: "info", Format: logger.FormatText},
		TTN: TTNConfig{
			APIURL:                   "https://10.4.33.17/api/v3",
			Timeout:                  15 * time.Second,
			NetworkServerAddress:     "10.4.33.18",
			ApplicationServerAddress: "10.4.33.18",
			JoinServerAddress:        "10.4.33.18",
		},
		Locations: LocationsConfig{
			URL:          "http://localhost:3001/api/locations",
			PollInterval: time.Minute,
			Timeout:      10 * time.Second,
		},
		Store:   StoreConfig{Backend: "memory", ConsulAddr: "127.0.0.1:8500"},
		Session: SessionConfig{TTL: 24 * time.Hour},
		MQTT: model.MQTTInfo{
			PublicAddress:    "10.4.33.18:1883",
			PublicTLSAddress: "10.4.33.18:8883",
			Username:         "adaptador-iot",
		},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CONSOLE_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := loadDotEnv(); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getenv("CONSOLE_ADDR", cfg.Addr)
	cfg.UIDir = getenv("CONSOLE_UI_DIR", cfg.UIDir)
	cfg.DevMode = getbool("CONSOLE_DEV", cfg.DevMode)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("LOG_FORMAT", cfg.Log.Format)
	cfg.TLS.CertFile = getenv("CONSOLE_TLS_CERT", cfg.TLS.CertFile)
	cfg.TLS.KeyFile = getenv("CONSOLE_TLS_KEY", cfg.TLS.KeyFile)
	cfg.TLS.ClientCA = getenv("CONSOLE_TLS_CLIENT_CA", cfg.TLS.ClientCA)

	cfg.TTN.APIURL = getenv("TTN_API_URL", cfg.TTN.APIURL)
	cfg.TTN.Insecure = getbool("TTN_INSECURE", cfg.TTN.Insecure)
	cfg.TTN.Timeout = getduration("TTN_TIMEOUT", cfg.TTN.Timeout)
	cfg.TTN.NetworkServerAddress = getenv("TTN_NS_ADDRESS", cfg.TTN.NetworkServerAddress)
	cfg.TTN.ApplicationServerAddress = getenv("TTN_AS_ADDRESS", cfg.TTN.ApplicationServerAddress)
	cfg.TTN.JoinServerAddress = getenv("TTN_JS_ADDRESS", cfg.TTN.JoinServerAddress)

	cfg.Locations.URL = getenv("LOCATIONS_URL", cfg.Locations.URL)
	cfg.Locations.Token = getenv("LOCATIONS_TOKEN", cfg.Locations.Token)
	cfg.Locations.PollInterval = getduration("LOCATIONS_POLL_INTERVAL", cfg.Locations.PollInterval)
	cfg.Locations.Timeout = getduration("LOCATIONS_TIMEOUT", cfg.Locations.Timeout)
	cfg.Locations.SnapshotPath = getenv("LOCATIONS_SNAPSHOT_PATH", cfg.Locations.SnapshotPath)

	cfg.Store.Backend = getenv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.ConsulAddr = getenv("CONSUL_ADDR", cfg.Store.ConsulAddr)

	cfg.Session.JWTSecret = getenv("JWT_SECRET", cfg.Session.JWTSecret)
	cfg.Session.TTL = getduration("SESSION_TTL", cfg.Session.TTL)
	cfg.Session.SealKey = getenv("SESSION_KEY", cfg.Session.SealKey)
	cfg.Session.MySQLDSN = mysqlDSN(cfg.Session.MySQLDSN)

	cfg.MQTT.PublicAddress = getenv("MQTT_PUBLIC_ADDRESS", cfg.MQTT.PublicAddress)
	cfg.MQTT.PublicTLSAddress = getenv("MQTT_PUBLIC_TLS_ADDRESS", cfg.MQTT.PublicTLSAddress)
	cfg.MQTT.Username = getenv("MQTT_USERNAME", cfg.MQTT.Username)
}

// mysqlDSN prefers MYSQL_DSN, then assembles one from MYSQL_HOST and friends.
func mysqlDSN(def string) string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	host := os.Getenv("MYSQL_HOST")
	if host == "" {
		return def
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		getenv("MYSQL_USER", "root"), os.Getenv("MYSQL_PASS"), host,
		getenv("MYSQL_PORT", "3306"), getenv("MYSQL_DB", "lora_console"))
}

// Validate rejects configurations the console cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.TTN.APIURL == "" {
		errs = append(errs, errors.New("ttn api url is required"))
	}
	if c.Locations.URL == "" {
		errs = append(errs, errors.New("locations url is required"))
	}
	if c.Locations.PollInterval <= 0 {
		errs = append(errs, errors.New("locations poll interval must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.Session.JWTSecret == "" && !c.DevMode {
		errs = append(errs, errors.New("jwt secret is required outside dev mode"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	switch c.Store.Backend {
	case "memory", "consul":
	default:
		errs = append(errs, fmt.Errorf("unsupported store backend %q", c.Store.Backend))
	}
	return errors.Join(errs...)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
