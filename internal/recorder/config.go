package recorder

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// Environment keys for the process-wide configuration.
const (
	ModeKey      = "MEMO_MODE"
	ReplayIdxKey = "MEMO_REPLAY_IDX"
	DBNameKey    = "MEMO_DATABASE_NAME"
)

// Mode selects the engine-wide behavior of every interception.
type Mode string

const (
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

// Config is the process-wide configuration, read from the environment.
// ReplayIdx stays a raw string so that a malformed value surfaces as a
// BAD_CONFIG error at call time, not at parse time.
type Config struct {
	Mode      string `env:"MEMO_MODE" envDefault:"record"`
	ReplayIdx string `env:"MEMO_REPLAY_IDX"`
	DBPath    string `env:"MEMO_DATABASE_NAME" envDefault:"event_db.json"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// mode validates the configured mode, defaulting to record with a
// warning on an unrecognized value. A nil logger means slog.Default.
func (c Config) mode(log *slog.Logger) Mode {
	switch Mode(c.Mode) {
	case ModeRecord, ModeReplay:
		return Mode(c.Mode)
	}
	if log == nil {
		log = slog.Default()
	}
	log.Warn("invalid memo mode; defaulting to record", "mode", c.Mode)
	return ModeRecord
}

// replayIndex returns the target scene index. A missing or
// non-integer value is a fatal configuration error: replay cannot
// guess which scene to address.
func (c Config) replayIndex() (int, error) {
	if c.ReplayIdx == "" {
		return 0, &Error{
			Code:    ErrCodeBadConfig,
			Message: fmt.Sprintf("replay mode requires %s to select the scene to replay", ReplayIdxKey),
		}
	}
	idx, err := strconv.Atoi(c.ReplayIdx)
	if err != nil {
		return 0, &Error{
			Code:    ErrCodeBadConfig,
			Message: fmt.Sprintf("invalid %s %q; expecting an integer", ReplayIdxKey, c.ReplayIdx),
			Err:     err,
		}
	}
	return idx, nil
}
