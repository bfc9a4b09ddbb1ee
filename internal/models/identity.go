package models

import "time"

// Environment modes recognised by the service.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// AppIdentity names the running service. It is built once at startup and
// shared read-only by every handler.
type AppIdentity struct {
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Environment   string    `json:"environment"`
	BootTimestamp time.Time `json:"boot_timestamp"`
}

// IsProduction reports whether the service runs in production mode.
func (a AppIdentity) IsProduction() bool {
	return a.Environment == EnvProduction
}

// IsTest reports whether the service runs in test mode.
func (a AppIdentity) IsTest() bool {
	return a.Environment == EnvTest
}
