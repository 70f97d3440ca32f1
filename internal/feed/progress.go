package feed

import "github.com/go-while/go-numfeed/internal/models"

// ComputeProgress derives the page counters from the cursor before (start)
// and after (end) a fetch of page size n over total numbers.
// It has no side effects and returns the zero value for n <= 0.
func ComputeProgress(start, end, total, n int) models.Progress {
	if n <= 0 {
		return models.Progress{}
	}
	remaining := total - start
	if remaining < 0 {
		remaining = 0
	}
	pagesRemaining := remaining / n
	if remaining%n != 0 {
		pagesRemaining++
	}
	pagesRemaining-- // minus the page just served
	if pagesRemaining < 0 {
		pagesRemaining = 0
	}
	return models.Progress{
		Consumed:       end,
		Total:          total,
		Page:           start/n + 1,
		PagesRemaining: pagesRemaining,
	}
}

// PageProgress is ComputeProgress for a served page, using the cursor
// values and page size recorded in p. total is the store's number count.
// Only meaningful for pages that were not exhausted.
func PageProgress(p *models.PageResult, total int) models.Progress {
	return ComputeProgress(p.Start, p.End, total, p.Size)
}
