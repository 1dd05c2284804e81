package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

const detachedTaskTimeout = 30 * time.Second

// propertyLocation resolves the zone a property's local times are written in:
// the stored zone name, then a lookup from coordinates, then UTC.
func propertyLocation(p *models.Property) *time.Location {
	if p == nil {
		return time.UTC
	}
	tz := p.TimeZone
	if tz == "" && (p.Latitude != 0 || p.Longitude != 0) {
		tz = latlong.LookupZoneName(p.Latitude, p.Longitude)
	}
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		utils.Logger.WithError(err).Warnf("Unknown time zone %q for property %s, using UTC", tz, p.ID)
		return time.UTC
	}
	return loc
}

// combineLocalDateTime joins "YYYY-MM-DD" and "HH:MM" in loc.
func combineLocalDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return t, nil
}

// detach runs fn on its own goroutine with a fresh context. Nothing waits
// for it and panics are logged.
func detach(name string, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				utils.Logger.Errorf("detached task %s panicked: %v", name, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), detachedTaskTimeout)
		defer cancel()
		fn(ctx)
	}()
}
