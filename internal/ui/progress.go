package ui

import (
	"fmt"
	"io"

	"envrun/internal/domain"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar renders per-file progress. It satisfies the scheduler's
// observer so it can be attached to a run directly.
type ProgressBar struct {
	bar *progressbar.ProgressBar

	env     string
	success int
	failed  int
}

// NewProgressBar creates a new progress bar for count files writing to w
func NewProgressBar(w io.Writer, count int) *ProgressBar {
	p := &ProgressBar{}
	p.bar = progressbar.NewOptions(count,
		progressbar.OptionSetDescription(p.describe()),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return p
}

func (p *ProgressBar) describe() string {
	label := "Running tests"
	if p.env != "" {
		label = fmt.Sprintf("Running tests [%s]", p.env)
	}
	return color.CyanString(label+": ") +
		color.GreenString("[success: %d", p.success) +
		" | " +
		color.RedString("failed: %d]", p.failed)
}

// Update updates the progress bar with success and failure counts
func (p *ProgressBar) Update(successCount, failCount int) {
	p.success = successCount
	p.failed = failCount
	_ = p.bar.Set(successCount + failCount)
	p.bar.Describe(p.describe())
}

// GroupStarted shows the environment the next files run under
func (p *ProgressBar) GroupStarted(group domain.Group) {
	p.env = group.Environment
	p.bar.Describe(p.describe())
}

// FileStarted is a no-op; progress moves when a file finishes.
func (p *ProgressBar) FileStarted(env, file string) {}

// FileFinished counts the result
func (p *ProgressBar) FileFinished(result domain.TestResult) {
	if result.Success {
		p.Update(p.success+1, p.failed)
	} else {
		p.Update(p.success, p.failed+1)
	}
}

// GroupFinished is a no-op.
func (p *ProgressBar) GroupFinished(group domain.Group, err error) {}

// Finish completes the progress bar
func (p *ProgressBar) Finish() {
	_ = p.bar.Finish()
}
