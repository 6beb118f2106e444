package repository

import (
	"context"

	"medreminder/internal/model"
)

type ScheduleRepository interface {
	// FindByTimeOfDay returns every schedule whose time of day equals bucket exactly
	FindByTimeOfDay(ctx context.Context, bucket string) ([]model.Schedule, error)
}

type IntakeRepository interface {
	// ExistsForDay reports whether any intake was recorded for the schedule during day
	ExistsForDay(ctx context.Context, scheduleID string, day model.Day) (bool, error)
}

// EndpointSource is one place endpoint registrations are kept.
// A missing user yields an empty slice and a nil error.
type EndpointSource interface {
	Name() string
	EndpointsForUser(ctx context.Context, userID string) ([]string, error)
}

// EndpointPruner removes an endpoint the transport reported as unregistered.
type EndpointPruner interface {
	RemoveEndpoint(ctx context.Context, userID, token string) error
}

// DeviceTokenRepository is the device_tokens table. It is also an endpoint source.
type DeviceTokenRepository interface {
	EndpointSource
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a device token
	Delete(ctx context.Context, token string) error
}
