package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// branchLog reports branch progress at debug level.
type branchLog struct {
	logger *log.Logger
}

func (b *branchLog) OnBranchStart(_ context.Context, project string, initial bool) {
	b.logger.Debug("branching", "project", project, "initial", initial)
}

func (b *branchLog) OnBranchStage(_ context.Context, stage string, count int) {
	if count > 0 {
		b.logger.Debugf("  %-20s %d copies", stage, count)
	}
}

func (b *branchLog) OnBranchComplete(_ context.Context, project string, version, elements int, d time.Duration, err error) {
	if err != nil {
		b.logger.Debug("branch aborted", "project", project, "copied", elements)
		return
	}
	b.logger.Debugf("branched %s into v%d: %d elements (%s)", project, version, elements, d.Round(time.Microsecond))
}

// evolutionStats counts detector runs for the diff summary.
type evolutionStats struct {
	runs, changes, failures int
}

func (e *evolutionStats) OnDetect(_ context.Context, _, _ string, changes int) {
	e.runs++
	e.changes += changes
}

func (e *evolutionStats) OnVerifyFailed(context.Context, string, error) {
	e.failures++
}
