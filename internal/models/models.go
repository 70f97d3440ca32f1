// Package models defines core data structures for go-numfeed
package models

import (
	"strings"
	"time"
)

// ExhaustedMessage is returned once every number has been handed out
const ExhaustedMessage = "No more numbers"

// NoMessageFound is used when the message file is missing or empty
const NoMessageFound = "No message found"

// PageResult is what the store hands back for one fetch.
// Start and End are the cursor before and after the call.
type PageResult struct {
	Numbers   []string // test number first, then the page in original order
	Message   string
	Count     int // len(Numbers), 0 when exhausted
	Exhausted bool
	Start     int
	End       int
	Size      int // effective page size used for this call
}

// Joined returns the numbers as one comma separated string
func (p *PageResult) Joined() string {
	return strings.Join(p.Numbers, ",")
}

// FetchResponse is the JSON body of GET /fetch
type FetchResponse struct {
	Numbers string `json:"numbers"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// NewFetchResponse maps a store result to the wire format
func NewFetchResponse(p *PageResult) *FetchResponse {
	if p == nil || p.Exhausted {
		return &FetchResponse{
			Numbers: "",
			Message: ExhaustedMessage,
			Count:   0,
		}
	}
	return &FetchResponse{
		Numbers: p.Joined(),
		Message: p.Message,
		Count:   p.Count,
	}
}

// Snapshot is a read-only view of the cursor
type Snapshot struct {
	Total             int  `json:"total"`
	Consumed          int  `json:"consumed"`
	Remaining         int  `json:"remaining"`
	Exhausted         bool `json:"exhausted"`
	DefaultFetchCount int  `json:"default_fetch_count"`
}

// Progress is the diagnostic projection logged after each served page
type Progress struct {
	Consumed       int
	Total          int
	Page           int
	PagesRemaining int
}

// LedgerEntry is one served page as recorded in the ledger database
type LedgerEntry struct {
	ID         int64     `json:"id" db:"id"`
	RequestID  string    `json:"request_id" db:"request_id"`
	StartIndex int       `json:"start_index" db:"start_index"`
	EndIndex   int       `json:"end_index" db:"end_index"`
	PageSize   int       `json:"page_size" db:"page_size"`
	Count      int       `json:"count" db:"count"`
	ServedAt   time.Time `json:"served_at" db:"served_at"`
}

// LedgerTotals summarizes the ledger
type LedgerTotals struct {
	Pages     int64 `json:"pages"`
	Numbers   int64 `json:"numbers"`
	LastIndex int64 `json:"last_index"`
}

// StatsResponse is the JSON body of GET /stats
type StatsResponse struct {
	Snapshot
	AppVersion string        `json:"app_version"`
	Uptime     string        `json:"uptime"`
	Ledger     *LedgerTotals `json:"ledger,omitempty"`
}
