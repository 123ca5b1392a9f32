package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hyperjump/folio/internal/indexer"
)

func TestProgress_disabled(t *testing.T) {
	p := NewProgress(&bytes.Buffer{}, false)
	if p.Func() != nil {
		t.Error("disabled progress should yield a nil callback")
	}
	p.Finish()
}

func TestProgress_stages(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true)
	fn := p.Func()
	fn(indexer.StageChunk, 2, 2)
	fn(indexer.StageEmbed, 1, 4)
	fn(indexer.StageEmbed, 4, 4)
	fn(indexer.StageUpsert, 0, 0)
	p.Finish()

	out := buf.String()
	for _, stage := range []indexer.Stage{indexer.StageChunk, indexer.StageEmbed} {
		if !strings.Contains(out, string(stage)) {
			t.Errorf("output missing stage %q: %q", stage, out)
		}
	}
}
