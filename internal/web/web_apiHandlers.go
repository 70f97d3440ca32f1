package web

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-numfeed/internal/config"
	"github.com/go-while/go-numfeed/internal/feed"
	"github.com/go-while/go-numfeed/internal/models"
	"github.com/google/uuid"
)

// LIMIT_ledger caps GET /ledger
var LIMIT_ledger = 1000

// fetchNumbers serves GET /fetch?n=<page size>.
// Always 200: a bad n falls back to the default and exhaustion is a normal answer.
func (s *WebServer) fetchNumbers(c *gin.Context) {
	n := feed.ResolvePageSize(c.Query("n"), s.Store.DefaultFetchCount())
	page := s.Store.TakeNextPage(n)
	response := models.NewFetchResponse(page)

	if page.Exhausted {
		if s.Config.Debug {
			log.Printf("[FETCH]: exhausted at %d, n=%d", page.Start, page.Size)
		}
		c.JSON(http.StatusOK, response)
		return
	}

	requestID := uuid.NewString()
	c.Header("X-Request-ID", requestID)

	progress := feed.PageProgress(page, s.Store.Total())
	log.Printf("[FETCH]: progress %d / %d, page %d, %d pages left",
		progress.Consumed, progress.Total, progress.Page, progress.PagesRemaining)
	if s.Config.Debug {
		log.Printf("[FETCH]: request %s response %+v", requestID, *response)
	}

	if s.Ledger != nil {
		s.Ledger.Record(&models.LedgerEntry{
			RequestID:  requestID,
			StartIndex: page.Start,
			EndIndex:   page.End,
			PageSize:   page.Size,
			Count:      page.Count,
			ServedAt:   time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, response)
}

// getStats returns the cursor position, never moves it
func (s *WebServer) getStats(c *gin.Context) {
	stats := models.StatsResponse{
		Snapshot:   s.Store.Snapshot(),
		AppVersion: config.AppVersion,
		Uptime:     time.Since(s.StartTime).Truncate(time.Second).String(),
	}
	if s.Ledger != nil {
		totals, err := s.Ledger.Totals()
		if err != nil {
			log.Printf("[WEB]: Warning: ledger totals: %v", err)
		} else {
			stats.Ledger = totals
		}
	}
	c.JSON(http.StatusOK, stats)
}

// getLedger returns the most recent ledger entries
func (s *WebServer) getLedger(c *gin.Context) {
	if s.Ledger == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "ledger disabled"})
		return
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > LIMIT_ledger {
		limit = LIMIT_ledger
	}

	entries, err := s.Ledger.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	c.JSON(http.StatusOK, entries)
}
