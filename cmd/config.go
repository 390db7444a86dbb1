package main

import "time"

type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel        string        `env:"LOG_LEVEL,required=true"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	GCInterval      time.Duration `env:"GC_INTERVAL,default=5m"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`

	// Rooms to seed at boot, e.g. "1:alice,bob;2:alice,carol".
	// Schema bootstrap proper lives outside the core; this is a dev
	// convenience so the authorization source is never empty.
	RoomsSeed string `env:"ROOMS_SEED"`
}
