package config

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

type Config struct {
	OrganizationName string
	AppName          string
	Env              string
	AppPort          string
	AppUrl           string
	UniqueRunNumber  string
	UniqueRunnerID   string

	// Database
	DBUrl           string
	DBEncryptionKey []byte

	// Auth
	RSAPublicKey  *rsa.PublicKey
	RSAPrivateKey *rsa.PrivateKey // only needed when seeding test data

	// Payment release
	StripeSecretKey    string
	ReleaseFunctionURL string
	ReleaseFunctionKey string

	// Notifications
	SendGridAPIKey   string
	TwilioAccountSID string
	TwilioAuthToken  string
	FinanceEmail     string

	// Optional; sweeps run without a cross-replica lease when empty.
	RedisURL string

	// LaunchDarkly flags
	LDFlag_PaymentReleaseMode   string
	LDFlag_SendgridFromEmail    string
	LDFlag_SendgridSandboxMode  bool
	LDFlag_TwilioFromPhone      string
	LDFlag_SeedDbWithTestData   bool
	LDFlag_CORSHighSecurity     bool
	LDFlag_UsingIsolatedSchema  bool
	LDFlag_NotificationsEnabled bool
}

const (
	OrganizationName    = utils.OrganizationName
	LDConnectionTimeout = 5 * time.Second
)

// build-time overrides, set with -ldflags
var (
	AppName             = "viewings-service"
	UniqueRunNumber     string
	UniqueRunnerID      string
	LDServerContextKey  = "viewings-service"
	LDServerContextKind = "service"
)

// LoadConfig reads env vars, secrets and feature flags. Missing required
// settings are fatal.
func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	env := os.Getenv("ENV")
	if env == "" {
		utils.Logger.Fatal("ENV env var is missing")
	}
	if env == "dev" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			utils.Logger.WithError(err).Warn("Failed to load .env file")
		}
	}

	appURL := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appURL == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}

	secrets := loadSecrets(env)

	dbURL := secrets.require("DB_URL")
	dbEncKey, err := base64.StdEncoding.DecodeString(secrets.require("DB_ENCRYPTION_KEY_BASE64"))
	if err != nil || len(dbEncKey) != 32 {
		utils.Logger.Fatal("DB_ENCRYPTION_KEY_BASE64 invalid – expect 32-byte key")
	}

	pubPEM, err := base64.StdEncoding.DecodeString(secrets.require("RSA_PUBLIC_KEY_BASE64"))
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode RSA_PUBLIC_KEY_BASE64")
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	flags := newFlagReader(secrets.get("LD_SDK_KEY"))
	defer flags.Close()

	cfg := &Config{
		OrganizationName:            OrganizationName,
		AppName:                     AppName,
		Env:                         env,
		AppPort:                     appPort,
		AppUrl:                      appURL,
		UniqueRunNumber:             UniqueRunNumber,
		UniqueRunnerID:              UniqueRunnerID,
		DBUrl:                       dbURL,
		DBEncryptionKey:             dbEncKey,
		RSAPublicKey:                pubKey,
		SendGridAPIKey:              secrets.get("SENDGRID_API_KEY"),
		TwilioAccountSID:            secrets.get("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:             secrets.get("TWILIO_AUTH_TOKEN"),
		FinanceEmail:                secrets.get("FINANCE_ALERT_EMAIL"),
		RedisURL:                    secrets.get("REDIS_URL"),
		LDFlag_PaymentReleaseMode:   flags.String("payment_release_mode", constants.ReleaseModeFunction),
		LDFlag_SendgridFromEmail:    flags.String("sendgrid_from_email", "no-reply@rentwell.dev"),
		LDFlag_SendgridSandboxMode:  flags.Bool("sendgrid_sandbox_mode", env != utils.ProductionEnv),
		LDFlag_TwilioFromPhone:      flags.String("twilio_from_phone", "+10005550006"),
		LDFlag_SeedDbWithTestData:   flags.Bool("seed_db_with_test_data", false),
		LDFlag_CORSHighSecurity:     flags.Bool("cors_high_security", env == utils.ProductionEnv),
		LDFlag_UsingIsolatedSchema:  flags.Bool("using_isolated_schema", false),
		LDFlag_NotificationsEnabled: flags.Bool("viewing_notifications_enabled", true),
	}

	switch cfg.LDFlag_PaymentReleaseMode {
	case constants.ReleaseModeStripe:
		cfg.StripeSecretKey = secrets.require("STRIPE_SECRET_KEY")
	case constants.ReleaseModeFunction:
		cfg.ReleaseFunctionURL = secrets.require("RELEASE_FUNCTION_URL")
		cfg.ReleaseFunctionKey = secrets.require("RELEASE_FUNCTION_KEY")
	default:
		utils.Logger.Fatalf("Unknown payment_release_mode %q", cfg.LDFlag_PaymentReleaseMode)
	}

	if cfg.LDFlag_UsingIsolatedSchema && (UniqueRunNumber == "" || UniqueRunnerID == "") {
		utils.Logger.Fatal("using_isolated_schema requires UniqueRunNumber and UniqueRunnerID ldflags")
	}

	if cfg.LDFlag_SeedDbWithTestData {
		privPEM, err := base64.StdEncoding.DecodeString(secrets.require("RSA_PRIVATE_KEY_BASE64"))
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to decode RSA_PRIVATE_KEY_BASE64")
		}
		cfg.RSAPrivateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privPEM)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to parse RSA private key")
		}
	}

	utils.Logger.Infof("Loaded config for %s (%s), release mode=%s", AppName, env, cfg.LDFlag_PaymentReleaseMode)
	return cfg
}

func (c *Config) Close() {}

// -----------------------------------------------------------------------------
// Secrets
// -----------------------------------------------------------------------------

type secretSet struct {
	source string
	values map[string]string
}

// loadSecrets merges the shared and app Bitwarden projects when BWS is
// configured; otherwise secrets come from the environment.
func loadSecrets(env string) secretSet {
	if !utils.BWSEnabled() {
		utils.Logger.Info("BWS_ACCESS_TOKEN not set; reading secrets from environment")
		return secretSet{source: "environment"}
	}

	client, err := utils.NewBWSSecretsClient()
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to initialize BWSSecretsClient")
	}
	defer client.Close()

	merged := map[string]string{}
	for _, project := range []string{fmt.Sprintf("shared-%s", env), fmt.Sprintf("%s-%s", AppName, env)} {
		vals, err := client.GetBWSSecrets(project)
		if err != nil {
			utils.Logger.WithError(err).Fatalf("Failed to fetch secrets from BWS (%s)", project)
		}
		for k, v := range vals {
			merged[k] = v
		}
	}
	return secretSet{source: "BWS", values: merged}
}

func (s secretSet) get(key string) string {
	if s.values == nil {
		return os.Getenv(key)
	}
	return s.values[key]
}

func (s secretSet) require(key string) string {
	v := s.get(key)
	if v == "" {
		utils.Logger.Fatalf("%s not found in %s", key, s.source)
	}
	return v
}

// -----------------------------------------------------------------------------
// Feature flags
// -----------------------------------------------------------------------------

// flagReader evaluates LaunchDarkly flags, or FLAG_<KEY> env vars when no SDK key is configured.
type flagReader struct {
	client *ld.LDClient
	ctx    ldcontext.Context
}

func newFlagReader(sdkKey string) *flagReader {
	if sdkKey == "" {
		utils.Logger.Warn("LD_SDK_KEY not set; feature flags fall back to FLAG_* env vars")
		return &flagReader{}
	}
	client, err := ld.MakeClient(sdkKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !client.Initialized() {
		client.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	return &flagReader{
		client: client,
		ctx:    ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey),
	}
}

func (f *flagReader) Bool(key string, def bool) bool {
	if f.client == nil {
		raw := os.Getenv(envFlagName(key))
		if raw == "" {
			return def
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			utils.Logger.Warnf("Invalid boolean for %s=%q, using %t", envFlagName(key), raw, def)
			return def
		}
		return v
	}
	v, err := f.client.BoolVariation(key, f.ctx, def)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", key)
	}
	utils.Logger.Debugf("%s flag: %t", key, v)
	return v
}

func (f *flagReader) String(key, def string) string {
	if f.client == nil {
		if raw := os.Getenv(envFlagName(key)); raw != "" {
			return raw
		}
		return def
	}
	v, err := f.client.StringVariation(key, f.ctx, def)
	if err != nil {
		utils.Logger.WithError(err).Fatalf("Error retrieving %s flag", key)
	}
	if v == "" {
		utils.Logger.Warnf("%s flag is empty, defaulting to %s", key, def)
		v = def
	}
	utils.Logger.Debugf("%s flag: %s", key, v)
	return v
}

func (f *flagReader) Close() {
	if f.client != nil {
		f.client.Close()
	}
}

func envFlagName(key string) string {
	return "FLAG_" + strings.ToUpper(key)
}
