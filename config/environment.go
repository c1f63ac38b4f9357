package config

import (
	"os"
	"strings"
)

const (
	appEnvVar              = "APP_ENV"
	environmentDevelopment = "development"
	environmentProduction  = "production"
	environmentPaper       = "paper"
)

const (
	// EnvironmentDevelopment exposes the canonical development
	// environment identifier.
	EnvironmentDevelopment = environmentDevelopment
	// EnvironmentProduction exposes the canonical production environment
	// identifier. Production connects to a live TWS/Gateway session.
	EnvironmentProduction = environmentProduction
	// EnvironmentPaper exposes the canonical paper trading environment
	// identifier.
	EnvironmentPaper = environmentPaper
)

var environmentAliases = map[string]string{
	"prod":      environmentProduction,
	"live":      environmentProduction,
	"dev":       environmentDevelopment,
	"papertrad": environmentPaper,
	"simulated": environmentPaper,
}

// getAppEnvironment reads the application environment from APP_ENV and
// defaults to development when no value is provided.
func getAppEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv(appEnvVar)))
	if env == "" {
		return environmentDevelopment
	}
	if canonical, ok := environmentAliases[env]; ok {
		return canonical
	}
	return env
}

// AppEnvironment exposes the current application environment as
// configured through the APP_ENV environment variable, normalised to a
// canonical identifier.
func AppEnvironment() string {
	return getAppEnvironment()
}

// IsLive reports whether the environment trades against a live
// account. Live environments should be stricter about configuration
// errors such as an unset client id.
func IsLive(env string) bool {
	return env == environmentProduction
}
