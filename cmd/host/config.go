package main

import "time"

type Config struct {
	ManagerName               string        `env:"MANAGER_NAME,required=true"`
	ForbiddenWords            string        `env:"FORBIDDEN_WORDS,default="`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,required=true"`
	HealthInterval            time.Duration `env:"HEALTH_INTERVAL,default=30s"`
	BadgerFilepath            string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
}
