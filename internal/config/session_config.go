package config

import (
	"strings"
	"time"
)

// TextRetentionPolicy controls what happens to an inbound text message after
// it has been persisted. Observed deployments have wanted both behaviours, so
// the policy is explicit rather than hard-coded.
type TextRetentionPolicy string

const (
	// TextRetain keeps text messages for later on-demand analysis.
	TextRetain TextRetentionPolicy = "retain"
	// TextDiscard persists the record and immediately deletes it.
	TextDiscard TextRetentionPolicy = "discard"
)

type SessionConfig interface {
	GetSessionDriver() string
	GetInitTimeout() time.Duration
	GetSweepInterval() time.Duration
	GetTextRetention() TextRetentionPolicy
}

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetSessionDriver() string {
	return GetEnv("SESSION_DRIVER", "dev")
}

func (Sessions) GetInitTimeout() time.Duration {
	return getDurationEnv("SESSION_INIT_TIMEOUT", 2*time.Minute)
}

func (Sessions) GetSweepInterval() time.Duration {
	return getDurationEnv("SWEEP_INTERVAL", 24*time.Hour)
}

func (Sessions) GetTextRetention() TextRetentionPolicy {
	value := strings.ToLower(GetEnv("TEXT_RETENTION", string(TextRetain)))
	if value == string(TextDiscard) {
		return TextDiscard
	}
	return TextRetain
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
