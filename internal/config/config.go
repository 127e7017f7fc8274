package config

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	IdentityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetSessionPassphrase() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Identity
}

// New loads an optional .env file and returns a Config backed by the environment.
func New(envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, reading environment variables directly")
	}
	return mainConfig{}
}
