package conf

import (
	"fmt"
	"time"
)

// Duration is a duration string ("10s", "1m30s") scanned from the config file.
type Duration string

// AsDuration parses the duration. Empty values parse to 0; a malformed value
// is a configuration error and must fail startup rather than fall back to a
// default.
func (d Duration) AsDuration() (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	v, err := time.ParseDuration(string(d))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", string(d), err)
	}
	return v, nil
}

// Bootstrap is the root configuration scanned from configs/config.yaml.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Credit *Credit `json:"credit"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
}

type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

type Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	DB           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

// Credit configures the credit ledger subsystem.
type Credit struct {
	// Mode selects the strategy: constants.ModeRedisBatch or constants.ModeDirectDB.
	Mode             string `json:"mode"`
	KeyPrefix        string `json:"key_prefix"`
	PendingKeyPrefix string `json:"pending_key_prefix"`
	Sync             *Sync  `json:"sync"`
}

type Sync struct {
	Enabled     bool     `json:"enabled"`
	Interval    Duration `json:"interval"`
	BatchSize   int      `json:"batch_size"`
	RetryCount  int      `json:"retry_count"`
	LockExpiry  Duration `json:"lock_expiry"`
	LockMinHold Duration `json:"lock_min_hold"`
}
