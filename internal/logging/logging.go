// Package logging builds the operational zap logger and writes failure dumps.
//
// User-facing output (status tables, progress lines) goes to stdout through
// the report package; zap carries operational detail and is routed to stderr.
// When an external tool fails, its full output is dumped to
// ~/.statproj/error_logs/ so the summary table can stay short.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Verbose enables debug level.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return logger, nil
}

// DumpError writes the full detail of a failed step to an error log file and
// returns its path. step names the failed operation ("poetry-install",
// "create-github") and is used in the filename. Dump failures are not fatal;
// an empty path is returned instead.
func DumpError(stateDir, step, detail string) string {
	dir := filepath.Join(stateDir, "error_logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	name := fmt.Sprintf("%s-%d-%s.log", step, time.Now().Unix(), uuid.NewString()[:8])
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(detail), 0o600); err != nil {
		return ""
	}
	return path
}
