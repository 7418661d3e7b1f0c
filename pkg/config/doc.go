// Package config loads configuration structs from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for parsing `env` struct tags:
//
//	var cfg statehistory.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Nothing is cached; every call parses again, so constructors always receive
// an explicit value. LoadFrom parses from a map instead of the process
// environment, which keeps tests independent of each other.
//
// Errors wrap ErrParsingConfig, ErrLoadingEnvFile or ErrNilPointer and can be
// matched with errors.Is.
package config
