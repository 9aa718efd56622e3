package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35

	colorBold = 1
)

func colorize(s any, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

var levelLabels = map[string]string{
	zerolog.LevelTraceValue: colorize("TRACE", colorMagenta),
	zerolog.LevelDebugValue: colorize("DEBUG", colorYellow),
	zerolog.LevelInfoValue:  colorize("INFO ", colorGreen),
	zerolog.LevelWarnValue:  colorize("WARN ", colorRed),
	zerolog.LevelErrorValue: colorize(colorize("ERROR", colorRed), colorBold),
	zerolog.LevelFatalValue: colorize(colorize("FATAL", colorRed), colorBold),
	zerolog.LevelPanicValue: colorize(colorize("PANIC", colorRed), colorBold),
}

func formatLevel(i any) string {
	ll, ok := i.(string)
	if !ok {
		if i == nil {
			return "| ???   |"
		}
		return fmt.Sprintf("| %s |", strings.ToUpper(fmt.Sprintf("%-5s", i))[0:5])
	}
	if label, ok := levelLabels[ll]; ok {
		return fmt.Sprintf("| %s |", label)
	}
	return fmt.Sprintf("| %s |", colorize(ll, colorBold))
}

// syncWriter keeps concurrent log lines from interleaving on the terminal.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// InitializeLogger points the global logger at stdout, either as colored
// console lines or as JSON, and sets the global level.
func InitializeLogger(level string, asJSON bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if asJSON {
		log.Logger = zerolog.New(&syncWriter{w: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:         &syncWriter{w: colorable.NewColorable(os.Stdout)},
			TimeFormat:  time.RFC3339,
			FormatLevel: formatLevel,
		})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func componentLogger(name string) *zerolog.Logger {
	l := log.With().Str("component", name).Logger()
	return &l
}

func clog() *zerolog.Logger { return componentLogger("config") }
func srvlog() *zerolog.Logger { return componentLogger("server") }
func hklog() *zerolog.Logger { return componentLogger("homekit") }

// LoggerMiddleware writes one access line per request and turns a handler
// panic into a 500. Adapted from github.com/ironstar-io/chizerolog.
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Interface("recover_info", rec).
						Bytes("debug_stack", debug.Stack()).
						Msg("HTTP endpoint panic")

					RespondError(ww, http.StatusInternalServerError, "Internal server error")
				}

				logger.Info().
					Str("type", "access").
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_ip", r.RemoteAddr).
					Str("url", r.URL.Path).
					Str("method", r.Method).
					Str("user_agent", r.Header.Get("User-Agent")).
					Int("status", ww.Status()).
					Float64("latency_ms", float64(time.Since(start).Nanoseconds())/1e6).
					Int("bytes_out", ww.BytesWritten()).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
