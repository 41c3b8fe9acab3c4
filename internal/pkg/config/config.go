package config

import (
	"io"
	"time"
)

// Config reads typed configuration values by dotted key.
//
// Implementations decide defaults and conversion behavior for missing or
// malformed values; callers treat zero values as "not configured".
type Config interface {
	io.Closer

	// GetString returns the value for key as a string.
	GetString(key string) string

	// GetBool returns the value for key as a bool.
	GetBool(key string) bool

	// GetInt returns the value for key as an int.
	GetInt(key string) int

	// GetInt64 returns the value for key as an int64.
	GetInt64(key string) int64

	// GetFloat64 returns the value for key as a float64.
	GetFloat64(key string) float64

	// GetSecond returns the integer value for key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetMinute returns the integer value for key as a duration in minutes.
	GetMinute(key string) time.Duration

	// GetHour returns the integer value for key as a duration in hours.
	GetHour(key string) time.Duration

	// GetBinary returns the value for key decoded from base64.
	GetBinary(key string) []byte

	// GetArray returns the value for key as a string slice. Values are stored
	// either as native lists or as "<a>,<b>,..." strings.
	GetArray(key string) []string

	// GetMap returns the value for key parsed from "<k>:<v>,<k>:<v>,..." pairs.
	GetMap(key string) map[string]string
}
