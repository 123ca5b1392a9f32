package indexer

import (
	"cmp"
	"context"
	"slices"

	"github.com/hyperjump/folio/internal/models"
	"golang.org/x/sync/errgroup"
)

// ChunkPages chunks pages concurrently, at most workers at a time. Pages share no
// state, so each is chunked independently; the result is ordered by page number
// and then by emission order within a page.
func (c *Chunker) ChunkPages(ctx context.Context, pages []models.Page) ([]models.Chunk, error) {
	perPage := make([][]models.Chunk, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perPage[i] = c.ChunkPage(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make([]int, len(pages))
	total := 0
	for i := range order {
		order[i] = i
		total += len(perPage[i])
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(pages[a].Number, pages[b].Number)
	})
	chunks := make([]models.Chunk, 0, total)
	for _, i := range order {
		chunks = append(chunks, perPage[i]...)
	}
	return chunks, nil
}
