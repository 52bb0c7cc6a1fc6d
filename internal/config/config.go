// Package config loads the service configuration from an optional YAML file
// overridden by environment variables.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/kevin07696/cybermut-service/internal/domain"
	pkgerrors "github.com/kevin07696/cybermut-service/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	Environment string          `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	Server      ServerConfig    `yaml:"server"`
	Logger      LoggerConfig    `yaml:"logger"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	KeyStore    KeyStoreConfig  `yaml:"key_store"`
	Cybermut    CybermutConfig  `yaml:"cybermut"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port        int    `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	MetricsPort int    `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9090"`

	// TrustProxy honors X-Forwarded-For style headers for the client IP
	TrustProxy      bool          `yaml:"trust_proxy" env:"TRUST_PROXY" env-default:"false"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	// OrdersFile seeds the in-memory order store with a JSON array of orders
	OrdersFile string `yaml:"orders_file" env:"ORDERS_FILE"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"` // debug, info, warn, error
}

// RateLimitConfig bounds requests per client IP on the payment endpoints
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"20"`
}

// KeyStoreConfig selects and configures the secret store holding merchant keys
type KeyStoreConfig struct {
	Backend  string        `yaml:"backend" env:"KEY_STORE_BACKEND" env-default:"local"` // local, aws, vault, gcp, mock
	CacheTTL time.Duration `yaml:"cache_ttl" env:"KEY_STORE_CACHE_TTL" env-default:"5m"`

	Local struct {
		BasePath  string `yaml:"base_path" env:"LOCAL_SECRETS_PATH" env-default:"./secrets"`
		MasterKey string `yaml:"master_key" env:"LOCAL_SECRETS_MASTER_KEY"`
	} `yaml:"local"`

	AWS struct {
		Region             string `yaml:"region" env:"AWS_REGION" env-default:"eu-west-3"`
		Profile            string `yaml:"profile" env:"AWS_PROFILE"`
		Endpoint           string `yaml:"endpoint" env:"AWS_SECRETS_ENDPOINT"`
		RecoveryWindowDays int64  `yaml:"recovery_window_days" env:"AWS_SECRETS_RECOVERY_DAYS" env-default:"7"`
	} `yaml:"aws"`

	Vault struct {
		Address    string `yaml:"address" env:"VAULT_ADDR" env-default:"http://127.0.0.1:8200"`
		AuthMethod string `yaml:"auth_method" env:"VAULT_AUTH_METHOD" env-default:"token"`
		Token      string `yaml:"token" env:"VAULT_TOKEN"`
		RoleID     string `yaml:"role_id" env:"VAULT_ROLE_ID"`
		SecretID   string `yaml:"secret_id" env:"VAULT_SECRET_ID"`
		K8sRole    string `yaml:"k8s_role" env:"VAULT_K8S_ROLE"`
		Namespace  string `yaml:"namespace" env:"VAULT_NAMESPACE"`
		MountPath  string `yaml:"mount_path" env:"VAULT_MOUNT_PATH" env-default:"secret"`
		KVVersion  string `yaml:"kv_version" env:"VAULT_KV_VERSION" env-default:"v2"`
	} `yaml:"vault"`

	GCP struct {
		ProjectID string `yaml:"project_id" env:"GCP_PROJECT_ID"`
	} `yaml:"gcp"`

	Paths struct {
		SecurityKey  string `yaml:"security_key" env:"CYBERMUT_SECURITY_KEY_PATH" env-default:"cybermut/security_key"`
		EncryptedKey string `yaml:"encrypted_key" env:"CYBERMUT_ENCRYPTED_KEY_PATH" env-default:"cybermut/key_encrypted"`
		SHAKey       string `yaml:"sha_key" env:"CYBERMUT_SHA_KEY_PATH" env-default:"cybermut/sha_key"`
		Key          string `yaml:"key" env:"CYBERMUT_KEY_PATH" env-default:"cybermut/key"`
	} `yaml:"paths"`
}

// CybermutConfig holds the merchant terminal configuration
type CybermutConfig struct {
	Version         string   `yaml:"version" env:"CYBERMUT_VERSION" env-default:"1.2open"`
	MerchantID      string   `yaml:"tpe" env:"CYBERMUT_TPE"`
	SiteCode        string   `yaml:"site_code" env:"CYBERMUT_SITE_CODE"`
	Bank            string   `yaml:"bank" env:"CYBERMUT_BANK" env-default:"monetico"`
	MACStrategy     string   `yaml:"mac_strategy" env:"CYBERMUT_MAC_STRATEGY" env-default:"positional"`
	TestMode        bool     `yaml:"test_mode" env:"CYBERMUT_TEST_MODE" env-default:"false"`
	TestIPs         []string `yaml:"test_ips" env:"CYBERMUT_TEST_IPS" env-separator:","`
	Description     string   `yaml:"description" env:"CYBERMUT_DESCRIPTION"`
	ButtonLabel     string   `yaml:"button_label" env:"CYBERMUT_BUTTON_LABEL" env-default:"Connexion sécurisée"`
	DefaultLanguage string   `yaml:"default_language" env:"CYBERMUT_DEFAULT_LANGUAGE" env-default:"FR"`
	Languages       []string `yaml:"languages" env:"CYBERMUT_LANGUAGES" env-separator:","`
	NotifyURL       string   `yaml:"notify_url" env:"CYBERMUT_NOTIFY_URL"`
	SuccessURL      string   `yaml:"success_url" env:"CYBERMUT_SUCCESS_URL"`
	ErrorURL        string   `yaml:"error_url" env:"CYBERMUT_ERROR_URL"`

	// AcceptedStatus3DSRisky is the order status for accepted payments whose
	// 3-D Secure authentication the bank flagged as risky
	AcceptedStatus3DSRisky string `yaml:"accepted_status_3ds_risky" env:"CYBERMUT_ACCEPTED_STATUS_3DS_RISKY" env-default:"paid"`
}

// riskyOrderStatuses are the order statuses a risky accepted payment may move to
var riskyOrderStatuses = map[string]bool{
	"pending_payment": true,
	"paid":            true,
	"on_hold":         true,
	"canceled":        true,
}

// Load reads the YAML file at path, when given, then applies environment overrides
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("load config: %w; %s", err, desc)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Cybermut.MerchantID == "" {
		return pkgerrors.NewValidationError("cybermut.tpe", "CYBERMUT_TPE is required")
	}
	if !domain.BankVariant(c.Cybermut.Bank).IsValid() {
		return pkgerrors.NewValidationError("cybermut.bank", fmt.Sprintf("unknown bank %q", c.Cybermut.Bank))
	}
	if !domain.MACStrategy(c.Cybermut.MACStrategy).IsValid() {
		return pkgerrors.NewValidationError("cybermut.mac_strategy", fmt.Sprintf("unknown MAC strategy %q", c.Cybermut.MACStrategy))
	}
	if domain.ParseMajorVersion(c.Cybermut.Version) == math.MaxInt {
		return pkgerrors.NewValidationError("cybermut.version", fmt.Sprintf("protocol version %q is out of range", c.Cybermut.Version))
	}
	if c.Cybermut.AcceptedStatus3DSRisky != "" && !riskyOrderStatuses[c.Cybermut.AcceptedStatus3DSRisky] {
		return pkgerrors.NewValidationError("cybermut.accepted_status_3ds_risky", fmt.Sprintf("unknown order status %q", c.Cybermut.AcceptedStatus3DSRisky))
	}

	switch c.KeyStore.Backend {
	case "local":
		if c.KeyStore.Local.MasterKey == "" {
			return pkgerrors.NewValidationError("key_store.local.master_key", "LOCAL_SECRETS_MASTER_KEY is required for the local key store")
		}
	case "aws", "vault", "mock":
	case "gcp":
		if c.KeyStore.GCP.ProjectID == "" {
			return pkgerrors.NewValidationError("key_store.gcp.project_id", "GCP_PROJECT_ID is required for the gcp key store")
		}
	default:
		return pkgerrors.NewValidationError("key_store.backend", fmt.Sprintf("unknown key store backend %q", c.KeyStore.Backend))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return pkgerrors.NewValidationError("rate_limit", "requests per second and burst must be positive")
	}
	return nil
}

// Gateway builds the merchant gateway configuration. Languages are looked up in
// catalog by code; an empty language list authorizes the whole catalog.
// Key fields are left empty and filled from the key store at request time.
func (c *Config) Gateway(catalog []domain.Language) *domain.GatewayConfig {
	languages := catalog
	if len(c.Cybermut.Languages) > 0 {
		languages = make([]domain.Language, 0, len(c.Cybermut.Languages))
		for _, code := range c.Cybermut.Languages {
			code = strings.ToUpper(strings.TrimSpace(code))
			for _, lang := range catalog {
				if lang.Code == code {
					languages = append(languages, lang)
					break
				}
			}
		}
	}

	testIPs := make([]string, 0, len(c.Cybermut.TestIPs))
	for _, ip := range c.Cybermut.TestIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			testIPs = append(testIPs, ip)
		}
	}

	return &domain.GatewayConfig{
		ProtocolVersion:    c.Cybermut.Version,
		MerchantID:         c.Cybermut.MerchantID,
		SiteCode:           c.Cybermut.SiteCode,
		BankVariant:        domain.BankVariant(c.Cybermut.Bank),
		MACStrategy:        domain.MACStrategy(c.Cybermut.MACStrategy),
		TestMode:           c.Cybermut.TestMode,
		TestModeAllowedIPs: testIPs,
		Description:        c.Cybermut.Description,
		ButtonLabel:        c.Cybermut.ButtonLabel,
		DefaultLanguage:    strings.ToUpper(c.Cybermut.DefaultLanguage),
		Languages:          languages,
		NotifyURL:          c.Cybermut.NotifyURL,
		SuccessURL:         c.Cybermut.SuccessURL,
		ErrorURL:           c.Cybermut.ErrorURL,
	}
}
