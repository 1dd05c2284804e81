//go:build (dev_test || staging_test) && integration

package integration

import (
	"log"
	"os"
	"testing"
	_ "time/tzdata"

	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/shared/go-testhelpers"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

var h *testhelpers.TestHelper

func TestMain(m *testing.M) {
	utils.InitLogger(config.AppName)

	if config.UniqueRunnerID == "" {
		log.Fatal("config.UniqueRunnerID is empty or not set (ldflags missing?)")
	}
	if config.UniqueRunNumber == "" {
		log.Fatal("config.UniqueRunNumber is empty or not set")
	}

	// TestMain runs before any test, so the helper gets a placeholder T.
	t := &testing.T{}
	h = testhelpers.NewTestHelper(t, config.AppName, config.UniqueRunnerID, config.UniqueRunNumber)

	log.Printf("viewings-service integration tests: baseURL=%s, env=%s", h.BaseURL, os.Getenv("ENV"))
	os.Exit(m.Run())
}
