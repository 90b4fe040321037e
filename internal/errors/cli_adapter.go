package errors

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	stderr  io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		stderr:  os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var c Classified
	if !stdErrors.As(err, &c) {
		return 1
	}

	switch c.ErrorCategory() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryContent:
		return 3 // Authoring error
	case CategoryConfig:
		return 7
	case CategoryBuild, CategoryGenerator, CategoryFileSystem:
		return 11
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if a.verbose {
		return fmt.Sprintf("Error: %v", err)
	}

	var kerr *KitError
	if stdErrors.As(err, &kerr) && kerr.Cause == nil {
		switch kerr.Category {
		case CategoryConfig, CategoryValidation:
			return kerr.Message
		default:
			return fmt.Sprintf("%s: %s", kerr.Category, kerr.Message)
		}
	}

	// Typed domain errors already render an actionable message naming the
	// offending collection, entry or process.
	var c Classified
	if stdErrors.As(err, &c) {
		return fmt.Sprintf("%s: %v", c.ErrorCategory(), c)
	}

	return fmt.Sprintf("Error: %v", err)
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	_, _ = fmt.Fprintln(a.stderr, message)
	a.exit(exitCode)
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	cat := GetCategory(err)
	return cat == CategoryInternal || cat == CategoryBuild
}

func (a *CLIErrorAdapter) logError(err error) {
	var kerr *KitError
	if stdErrors.As(err, &kerr) {
		attrs := []slog.Attr{slog.String("category", string(kerr.Category))}
		for k, v := range kerr.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		a.logger.LogAttrs(context.Background(), slogLevel(kerr.Severity), kerr.Message, attrs...)
		return
	}

	a.logger.Error("Command failed", "category", string(GetCategory(err)), "error", err)
}

func slogLevel(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
