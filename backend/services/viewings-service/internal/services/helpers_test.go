package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/stretchr/testify/require"
)

func TestPropertyLocation(t *testing.T) {
	require.Equal(t, time.UTC, propertyLocation(nil))

	named := &models.Property{ID: uuid.New(), TimeZone: "Africa/Nairobi"}
	require.Equal(t, "Africa/Nairobi", propertyLocation(named).String())

	// Nairobi coordinates, no stored zone.
	byCoords := &models.Property{ID: uuid.New(), Latitude: -1.2921, Longitude: 36.8219}
	require.Equal(t, "Africa/Nairobi", propertyLocation(byCoords).String())

	bogus := &models.Property{ID: uuid.New(), TimeZone: "Not/AZone"}
	require.Equal(t, time.UTC, propertyLocation(bogus))
}

func TestCombineLocalDateTime(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	got, err := combineLocalDateTime("2025-06-01", "13:00", loc)
	require.NoError(t, err)
	require.True(t, got.Equal(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))

	_, err = combineLocalDateTime("2025-06-01", "", loc)
	require.Error(t, err)
	_, err = combineLocalDateTime("06/01/2025", "10:00", loc)
	require.Error(t, err)
}
