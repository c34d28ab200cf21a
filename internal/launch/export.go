package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/PrinceLee1/lovey-dovey/internal/domain"
)

// Record is one finished game as written to the export file.
type Record struct {
	Title     string
	Kind      domain.Kind
	Code      string
	SessionID int64
	Players   [2]string
	Started   time.Time
	Ended     time.Time
	Result    domain.Result
}

// Export appends rec to a plain text results file, creating it and its
// directory on first use.
func Export(rec Record, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	if fileExists {
		sb.WriteString("\n")
	} else {
		sb.WriteString("Lovey-Dovey Game Results\n")
		sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	}

	title := rec.Title
	if title == "" {
		title = string(rec.Kind)
	}
	sb.WriteString(fmt.Sprintf("%s (%s)\n", title, rec.Kind))
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	switch {
	case rec.SessionID != 0:
		sb.WriteString(fmt.Sprintf("Lobby %s, session %d\n", rec.Code, rec.SessionID))
	case rec.Code != "":
		sb.WriteString(fmt.Sprintf("Session %s\n", rec.Code))
	}
	sb.WriteString(fmt.Sprintf("Players: %s & %s\n", rec.Players[0], rec.Players[1]))
	sb.WriteString(fmt.Sprintf("Started: %s\n", rec.Started.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Ended:   %s\n", rec.Ended.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("XP: %d, rounds: %d, skipped: %d\n", rec.Result.XPEarned, rec.Result.Rounds, rec.Result.Skipped))

	if len(rec.Result.Meta) > 0 {
		keys := make([]string, 0, len(rec.Result.Meta))
		for k := range rec.Result.Meta {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %v\n", k, rec.Result.Meta[k]))
		}
	}

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
