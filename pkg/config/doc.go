// Package config loads typed configuration structs from environment
// variables using caarlos0/env struct tags, with optional .env file support
// via godotenv.
//
// Each configuration type is parsed at most once per process; subsequent
// Load calls for the same type return the cached value. This keeps config
// reads cheap for collaborators that load their own section (pg, redis,
// queue, providers) without sharing a god-object.
//
//	type QueueConfig struct {
//		PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil { ... }
package config
