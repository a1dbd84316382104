package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunSummary 汇总一轮预测更新的结果，供日志、HTTP 状态页和通知摘要复用。
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	SymbolsAttempted int `json:"symbols_attempted"`
	SymbolsFailed    int `json:"symbols_failed"`

	UpdatesAttempted int `json:"updates_attempted"`
	UpdatesFailed    int `json:"updates_failed"`
	UpdatesSkipped   int `json:"updates_skipped"`

	// Errors carries one human-readable line per failure, in occurrence order.
	Errors []string `json:"errors,omitempty"`
}

func newRunSummary(now time.Time) *RunSummary {
	return &RunSummary{RunID: uuid.NewString(), StartedAt: now}
}

func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// SuccessRate reports submitted-vs-attempted as a percentage. A run that
// attempted nothing counts as fully successful.
func (s *RunSummary) SuccessRate() float64 {
	if s.UpdatesAttempted == 0 {
		return 100
	}
	return float64(s.UpdatesAttempted-s.UpdatesFailed) / float64(s.UpdatesAttempted) * 100
}

func (s *RunSummary) recordError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// LogBlock renders the end-of-run report written to the service log.
func (s *RunSummary) LogBlock() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished in %s\n", s.RunID, s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "  symbols:  %d attempted, %d failed\n", s.SymbolsAttempted, s.SymbolsFailed)
	fmt.Fprintf(&b, "  updates:  %d attempted, %d failed, %d skipped\n",
		s.UpdatesAttempted, s.UpdatesFailed, s.UpdatesSkipped)
	fmt.Fprintf(&b, "  success:  %.1f%%", s.SuccessRate())
	for _, e := range s.Errors {
		fmt.Fprintf(&b, "\n  error:    %s", e)
	}
	return b.String()
}

// Digest renders the short notification message pushed after each run.
func (s *RunSummary) Digest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast run %s\n", shortID(s.RunID))
	fmt.Fprintf(&b, "Symbols %d ok / %d failed\n",
		s.SymbolsAttempted-s.SymbolsFailed, s.SymbolsFailed)
	fmt.Fprintf(&b, "Updates %d sent, %d failed, %d skipped (%.1f%%)",
		s.UpdatesAttempted-s.UpdatesFailed, s.UpdatesFailed, s.UpdatesSkipped, s.SuccessRate())
	if n := len(s.Errors); n > 0 {
		fmt.Fprintf(&b, "\nFirst error: %s", s.Errors[0])
		if n > 1 {
			fmt.Fprintf(&b, " (+%d more)", n-1)
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
