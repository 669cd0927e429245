package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects identity, configuration and feature flags, then
// emits a single structured event describing how the process was started.
type StartupLogger struct {
	name         string
	version      string
	listenAddr   string
	initDuration time.Duration

	files    map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given binary name
// (e.g. "studio-web", "studio-mcp").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		files:    make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Version sets the build version string.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

// ListenAddr records the address the HTTP server binds to.
func (s *StartupLogger) ListenAddr(addr string) *StartupLogger {
	s.listenAddr = addr
	return s
}

// File registers a file or directory the process reads or writes.
func (s *StartupLogger) File(label, path string) *StartupLogger {
	s.files[label] = path
	return s
}

// Feature registers a boolean feature flag.
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
// Credentials must never be passed here.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long initialization took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO event with everything collected.
func (s *StartupLogger) Log() {
	evt := log.Info()

	process := zerolog.Dict().
		Str("name", s.name).
		Int("pid", os.Getpid()).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("os", runtime.GOOS).
		Str("logLevel", os.Getenv("STUDIO_LOG_LEVEL"))
	if s.version != "" {
		process = process.Str("version", s.version)
	}
	if s.listenAddr != "" {
		process = process.Str("listenAddr", s.listenAddr)
	}
	evt = evt.Dict("process", process)

	if len(s.files) > 0 {
		evt = evt.Dict("files", dictFromMap(s.files))
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
