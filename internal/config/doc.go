// Package config loads the engine and server configuration from GOBLOG_*
// environment variables, optionally seeded from .env files.
//
// Unset variables keep the values of [goBlog.DefaultConfig]. Validation is
// left to the engine builder.
package config
