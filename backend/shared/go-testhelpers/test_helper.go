package testhelpers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	"github.com/stretchr/testify/require"
)

// TestHelper encapsulates what integration tests need to drive a running service
// and inspect its database.
type TestHelper struct {
	T               *testing.T
	Ctx             context.Context
	BaseURL         string
	DB              *pgxpool.Pool
	PrivateKey      *rsa.PrivateKey
	DBEncryptionKey []byte

	// From ldflags
	AppName         string
	UniqueRunNumber string
	UniqueRunnerID  string

	ProfileRepo        repositories.ProfileRepository
	PropertyRepo       repositories.PropertyRepository
	ViewingRequestRepo repositories.ViewingRequestRepository
	TransactionRepo    repositories.TransactionRepository
	PaymentReleaseRepo repositories.PaymentReleaseRepository
}

// NewTestHelper loads secrets from BWS (or the environment), connects to the
// isolated schema of this run and builds the repositories. Call it once from TestMain.
func NewTestHelper(t *testing.T, appName, uniqueRunID, uniqueRunNum string) *TestHelper {
	baseURL := os.Getenv("APP_URL_FROM_ANYWHERE")
	if baseURL == "" {
		log.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	env := os.Getenv("ENV")
	if env == "" {
		log.Fatal("ENV env var is missing")
	}

	secrets := loadSecrets(t, appName, env)

	privateKeyPEM, err := base64.StdEncoding.DecodeString(secrets["RSA_PRIVATE_KEY_BASE64"])
	require.NoError(t, err)
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	require.NoError(t, err, "RSA_PRIVATE_KEY_BASE64 is not a valid PEM key")

	dbEncryptionKey, err := base64.StdEncoding.DecodeString(secrets["DB_ENCRYPTION_KEY_BASE64"])
	require.NoError(t, err)
	require.Len(t, dbEncryptionKey, 32, "DB encryption key must be 32 bytes")

	dbURL := secrets["DB_URL"]
	require.NotEmpty(t, dbURL, "DB_URL not found")
	effectiveURL, err := utils.WithIsolatedRole(dbURL, uniqueRunID, uniqueRunNum)
	require.NoError(t, err)

	ctx := context.Background()
	dbPool, err := pgxpool.Connect(ctx, effectiveURL)
	require.NoError(t, err)
	t.Cleanup(func() { dbPool.Close() })

	return &TestHelper{
		T:                  t,
		Ctx:                ctx,
		BaseURL:            baseURL,
		DB:                 dbPool,
		PrivateKey:         privateKey,
		DBEncryptionKey:    dbEncryptionKey,
		AppName:            appName,
		UniqueRunnerID:     uniqueRunID,
		UniqueRunNumber:    uniqueRunNum,
		ProfileRepo:        repositories.NewProfileRepository(dbPool, dbEncryptionKey),
		PropertyRepo:       repositories.NewPropertyRepository(dbPool),
		ViewingRequestRepo: repositories.NewViewingRequestRepository(dbPool),
		TransactionRepo:    repositories.NewTransactionRepository(dbPool),
		PaymentReleaseRepo: repositories.NewPaymentReleaseRepository(dbPool),
	}
}

// loadSecrets merges the shared and app projects; app values win.
func loadSecrets(t *testing.T, appName, env string) map[string]string {
	out := map[string]string{}
	if !utils.BWSEnabled() {
		for _, k := range []string{"RSA_PRIVATE_KEY_BASE64", "DB_ENCRYPTION_KEY_BASE64", "DB_URL"} {
			out[k] = os.Getenv(k)
		}
		return out
	}

	client, err := utils.NewBWSSecretsClient()
	require.NoError(t, err, "Failed to init BWS client")
	defer client.Close()

	for _, project := range []string{fmt.Sprintf("shared-%s", env), fmt.Sprintf("%s-%s", appName, env)} {
		s, err := client.GetBWSSecrets(project)
		require.NoError(t, err, "Failed to fetch secrets for %s", project)
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}
