package cli

import (
	"io"
	"os"
	"sync"

	"github.com/hyperjump/folio/internal/indexer"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Progress draws one progress bar per ingestion stage.
type Progress struct {
	w     io.Writer
	mu    sync.Mutex
	stage indexer.Stage
	bar   *progressbar.ProgressBar
}

// NewProgress returns a Progress writing to w, or nil when disabled.
func NewProgress(w io.Writer, enabled bool) *Progress {
	if !enabled {
		return nil
	}
	return &Progress{w: w}
}

// DefaultProgressEnabled reports whether stderr is a terminal.
func DefaultProgressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// Func returns the callback to pass to indexer.WithProgress. A nil Progress
// yields a nil callback.
func (p *Progress) Func() indexer.ProgressFunc {
	if p == nil {
		return nil
	}
	return p.report
}

func (p *Progress) report(stage indexer.Stage, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total <= 0 {
		return
	}
	if p.bar == nil || stage != p.stage {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.stage = stage
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(string(stage)),
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
	_ = p.bar.Set(done)
}

// Finish completes the current bar.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
