package ingest

import (
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressReporter tracks ingestion progress across files.
type ProgressReporter interface {
	Start(total int)
	Describe(desc string)
	Increment()
	Finish()
}

// DefaultProgressEnabled reports whether stderr is a terminal.
func DefaultProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// NewProgress returns a terminal progress bar, or a no-op reporter
// when disabled.
func NewProgress(enabled bool) ProgressReporter {
	if !enabled {
		return noopProgress{}
	}
	return &barProgress{}
}

type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(total int) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *barProgress) Describe(desc string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(desc)
}

func (p *barProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)       {}
func (noopProgress) Describe(string) {}
func (noopProgress) Increment()      {}
func (noopProgress) Finish()         {}
