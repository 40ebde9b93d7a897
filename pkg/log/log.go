// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	itemIndent  = 4  // spaces to indent item entries
	nameWidth   = 35 // Base width for item id
	opWidth     = 20 // Width for operation name
	statusWidth = 15 // Width for status text
)

// 🎯 ItemOperation represents one operation outcome on one item
type ItemOperation struct {
	ItemID    string // Item identifier
	Operation string // Operation name
	Status    string // Outcome status text
	IsNew     bool   // Whether new artifacts were generated
	IsSkipped bool   // Whether the op was already complete
	IsFailed  bool   // Whether the op failed
	Generated int    // Artifacts generated this run
	Target    int    // Artifacts required in total
}

// 📦 PhaseOperation represents a pipeline phase for logging
type PhaseOperation struct {
	Name    string // Phase name (prepare/process/publish)
	Mode    string // Execution mode (remote/local)
	Details string // Free-form phase details
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog         zerolog.Logger
	console      io.Writer
	mu           sync.Mutex
	currentPhase *PhaseOperation
	operations   []ItemOperation
	warnFile     *os.File
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📂 CaptureWarnings mirrors every warning into a timestamped log file under
// dir, so long unattended runs leave an inspectable trail.
func (l *Logger) CaptureWarnings(dir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating warnings directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("warnings_%s.log", time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating warnings file: %w", err)
	}
	l.warnFile = f
	return nil
}

// 📂 Close releases the warnings file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.warnFile == nil {
		return nil
	}
	err := l.warnFile.Close()
	l.warnFile = nil
	return err
}

// 📝 formatItemOperation formats an item operation for display
func (l *Logger) formatItemOperation(op ItemOperation) string {
	// Determine symbol and color
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case op.IsFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case op.IsNew:
		symbol = '✓'
		symbolColor = color.FgGreen
	case op.IsSkipped:
		symbol = '•'
		symbolColor = color.FgCyan
	default:
		symbol = '-'
		symbolColor = color.FgYellow
	}

	progress := fmt.Sprintf("%d/%d", op.Generated, op.Target)

	// Build the line
	return fmt.Sprintf("%s%s %s %s %s %s",
		fmt.Sprintf("%*s", itemIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.ItemID),
		color.New(color.FgBlue).Sprint(fmt.Sprintf("%-*s", opWidth, op.Operation)),
		fmt.Sprintf("%-*s", statusWidth, op.Status),
		color.New(color.Faint).Sprint(progress))
}

// 📝 LogItemOperation logs one operation outcome on one item
func (l *Logger) LogItemOperation(ctx context.Context, op ItemOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Add to operations list
	l.operations = append(l.operations, op)

	// Format and print
	fmt.Fprintln(l.console, l.formatItemOperation(op))

	// Log to zerolog
	l.zlog.Info().
		Str("item", op.ItemID).
		Str("operation", op.Operation).
		Str("status", op.Status).
		Bool("is_new", op.IsNew).
		Bool("is_skipped", op.IsSkipped).
		Bool("is_failed", op.IsFailed).
		Int("generated", op.Generated).
		Int("target", op.Target).
		Msg("item operation")
}

// 📝 StartPhase starts a new pipeline phase
func (l *Logger) StartPhase(ctx context.Context, op PhaseOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentPhase = &op
	l.operations = nil

	// Print phase header
	fmt.Fprintf(l.console, "[%s]\n",
		color.New(color.FgCyan).Sprint(op.Name))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Mode),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.Details))

	// Log to zerolog
	l.zlog.Info().
		Str("phase", op.Name).
		Str("mode", op.Mode).
		Str("details", op.Details).
		Msg("starting phase")
}

// 📝 EndPhase ends the current pipeline phase
func (l *Logger) EndPhase(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentPhase == nil {
		return
	}

	// Log summary
	l.zlog.Info().
		Str("phase", l.currentPhase.Name).
		Int("operations", len(l.operations)).
		Msg("phase complete")

	l.currentPhase = nil
	l.operations = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nameText := color.New(color.Bold, color.FgCyan).Sprint("batchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", nameText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	if l.warnFile != nil {
		fmt.Fprintf(l.warnFile, "%s WARNING %s\n", time.Now().Format(time.RFC3339), msg)
	}
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	if l.warnFile != nil {
		fmt.Fprintf(l.warnFile, "%s ERROR %s\n", time.Now().Format(time.RFC3339), msg)
	}
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
