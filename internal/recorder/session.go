package recorder

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the process-wide engine context, created once at startup.
// It resolves the mode a single time, owns the memo log writer, and
// carries the clock and environment sources so tests can pin them.
type Session struct {
	cfg   Config
	mode  Mode
	token string

	log     *slog.Logger
	memoOut io.Writer
	now     func() time.Time
	environ func() []string

	bannerOnce sync.Once
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock pins the time source used for event timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithEnviron pins the environment snapshot source ("k=v" entries).
func WithEnviron(environ func() []string) SessionOption {
	return func(s *Session) { s.environ = environ }
}

// WithMemoLog redirects the memo hit/miss lines. These lines go to a
// plain writer, never through a logging backend, because the logging
// backend itself may be an intercepted call site.
func WithMemoLog(w io.Writer) SessionOption {
	return func(s *Session) { s.memoOut = w }
}

// WithLogger sets the structured logger for engine diagnostics.
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession creates the engine session. The mode is resolved here,
// once, with an unrecognized value warned about and treated as record.
func NewSession(cfg Config, opts ...SessionOption) *Session {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	s := &Session{
		cfg:     cfg,
		token:   uuid.Must(uuid.NewV7()).String(),
		log:     slog.Default(),
		memoOut: os.Stderr,
		now:     time.Now,
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Resolved after the options so the unknown-mode warning reaches
	// an injected logger.
	s.mode = cfg.mode(s.log)
	return s
}

// Mode reports the resolved engine mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Token is the unique identifier of this session, carried in log lines.
func (s *Session) Token() string {
	return s.token
}

// DBPath is the store file this session operates on.
func (s *Session) DBPath() string {
	return s.cfg.DBPath
}

// banner announces the mode exactly once per session, on the plain
// memo writer for the same recursion reason as the memo log lines.
func (s *Session) banner() {
	s.bannerOnce.Do(func() {
		fmt.Fprintf(s.memoOut, "MEMO: %sing\n", s.mode)
	})
}

// Setup performs the once-per-execution lifecycle step.
//
// Record mode captures a fresh event (environment snapshot plus
// timestamp) and appends a new scene with an empty context, persisting
// immediately: exactly one scene per process invocation. Replay mode
// rewinds every strict cursor so an already-replayed scene behaves
// identically on the next pass.
func (s *Session) Setup() error {
	s.banner()

	switch s.mode {
	case ModeRecord:
		event := s.capture()
		err := Update(s.cfg.DBPath, func(data *Data) error {
			data.Scenes = append(data.Scenes, &Scene{Event: event})
			return nil
		})
		if err != nil {
			return err
		}
		s.log.Info("captured event", "event", event.Name(), "session", s.token, "db", s.cfg.DBPath)
		return nil

	case ModeReplay:
		if err := ResetCursors(s.cfg.DBPath); err != nil {
			return err
		}
		s.log.Info("reset replay cursors", "session", s.token, "db", s.cfg.DBPath)
		return nil
	}
	return nil
}

// capture snapshots the invocation environment and current time.
func (s *Session) capture() Event {
	env := map[string]string{}
	for _, kv := range s.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[k] = v
	}
	return Event{Env: env, Timestamp: s.now().Format(time.RFC3339Nano)}
}

// ResetCursors rewinds the replay cursor of every strict memo in every
// scene, or only in the scenes named by index.
func ResetCursors(path string, sceneIdx ...int) error {
	return Update(path, func(data *Data) error {
		scenes := data.Scenes
		if len(sceneIdx) > 0 {
			scenes = make([]*Scene, 0, len(sceneIdx))
			for _, idx := range sceneIdx {
				scene, ok := data.SceneAt(idx)
				if !ok {
					return &Error{
						Code:    ErrCodeBadConfig,
						Message: fmt.Sprintf("scene index %d out of range (%d scenes)", idx, len(data.Scenes)),
						Path:    path,
					}
				}
				scenes = append(scenes, scene)
			}
		}
		for _, scene := range scenes {
			for _, memo := range scene.Context.Memos {
				memo.ResetCursor()
			}
		}
		return nil
	})
}
