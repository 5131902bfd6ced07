package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"toggl-billing/internal/errs"
	"toggl-billing/internal/policy"
)

// DefaultPolicyFile is read when neither --config nor BILLING_CONFIG is set.
const DefaultPolicyFile = "config.json"

// Config holds environment-driven configuration plus the billing policy.
type Config struct {
	Toggl struct {
		APIToken    string
		WorkspaceID int64  // 0: use the account's default workspace
		BaseURL     string // default: https://api.track.toggl.com
	}
	MySQL struct {
		DSN string // optional journal; e.g. user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	}
	Billing struct {
		Timezone   string // day boundaries; default Local
		Location   *time.Location
		PolicyFile string
	}
	HTTP struct {
		Addr string // default :8080
	}
	Policy policy.Policy
}

// Load reads configuration from the environment (after loading .env when
// present) and the policy from policyFile. An empty policyFile falls back
// to BILLING_CONFIG and then DefaultPolicyFile.
func Load(policyFile string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	cfg.Toggl.APIToken = os.Getenv("TOGGL_API_TOKEN")
	if cfg.Toggl.APIToken == "" {
		cfg.Toggl.APIToken = os.Getenv("API_TOKEN")
	}
	if cfg.Toggl.APIToken == "" {
		return cfg, errs.NewConfigurationError("TOGGL_API_TOKEN", "is required")
	}
	if ws := os.Getenv("TOGGL_WORKSPACE_ID"); ws != "" {
		v, err := strconv.ParseInt(ws, 10, 64)
		if err != nil {
			return cfg, errs.NewConfigurationError("TOGGL_WORKSPACE_ID", "must be an integer")
		}
		cfg.Toggl.WorkspaceID = v
	}
	cfg.Toggl.BaseURL = getEnvOrDefault("TOGGL_BASE_URL", "https://api.track.toggl.com")

	cfg.MySQL.DSN = os.Getenv("MYSQL_DSN")
	cfg.HTTP.Addr = getEnvOrDefault("HTTP_ADDR", ":8080")

	cfg.Billing.Timezone = getEnvOrDefault("BILLING_TZ", "Local")
	loc, err := time.LoadLocation(cfg.Billing.Timezone)
	if err != nil {
		return cfg, errs.NewConfigurationError("BILLING_TZ", err.Error())
	}
	cfg.Billing.Location = loc

	if policyFile == "" {
		policyFile = getEnvOrDefault("BILLING_CONFIG", DefaultPolicyFile)
	}
	cfg.Billing.PolicyFile = policyFile
	p, err := LoadPolicy(policyFile)
	if err != nil {
		return cfg, err
	}
	cfg.Policy = p
	return cfg, nil
}

// LoadPolicy reads a JSON or YAML policy file:
//
//	{"maxBreakRatio": 10, "tags": {"traveling": "travel", "break": "break"}, "clients": ["ACME"]}
//
// BILLING_MAX_BREAK_RATIO overrides maxBreakRatio.
func LoadPolicy(path string) (policy.Policy, error) {
	var p policy.Policy

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.BindEnv("maxBreakRatio", "BILLING_MAX_BREAK_RATIO"); err != nil {
		return p, err
	}
	if err := v.ReadInConfig(); err != nil {
		return p, errs.NewConfigurationError("policy", "reading "+path+": "+err.Error())
	}
	if err := v.Unmarshal(&p); err != nil {
		return p, errs.NewConfigurationError("policy", "decoding "+path+": "+err.Error())
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
