package storage

import (
	"context"
	"time"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

// LoadStatus is the outcome of a recorded load.
type LoadStatus string

const (
	StatusOK     LoadStatus = "ok"
	StatusFailed LoadStatus = "failed"
)

// LoadRecord is one attempt to load a server document. Descriptors are
// always stored redacted.
type LoadRecord struct {
	ID          string                       `json:"id"`
	Source      string                       `json:"source"`
	Status      LoadStatus                   `json:"status"`
	Policy      string                       `json:"policy"`
	Servers     []string                     `json:"servers"`
	Problems    []string                     `json:"problems"`
	Descriptors []mcpconfig.ServerDescriptor `json:"descriptors"`
	CreatedAt   time.Time                    `json:"created_at"`
}

// NewLoadRecord summarizes the result of loading source. set is ignored
// when err is non-nil.
func NewLoadRecord(id, source string, policy mcpconfig.Policy, set *mcpconfig.Set, err error) *LoadRecord {
	rec := &LoadRecord{
		ID:          id,
		Source:      source,
		Status:      StatusOK,
		Policy:      policy.String(),
		Servers:     []string{},
		Problems:    []string{},
		Descriptors: []mcpconfig.ServerDescriptor{},
	}
	if err != nil {
		rec.Status = StatusFailed
		rec.Problems = mcpconfig.Problems(err)
		return rec
	}
	if set != nil {
		rec.Servers = set.Names()
		rec.Descriptors = set.Redacted()
	}
	return rec
}

// LoadListOptions controls filtering and pagination for ListLoads.
type LoadListOptions struct {
	Status LoadStatus
	Source string
	Limit  int
	Offset int
}

// Store is the persistence interface for load history.
type Store interface {
	// SaveLoad inserts a record. The ID field must be set by the caller.
	SaveLoad(ctx context.Context, rec *LoadRecord) error

	// GetLoad returns a record by ID or ID prefix.
	GetLoad(ctx context.Context, id string) (*LoadRecord, error)

	// ListLoads returns records newest first.
	ListLoads(ctx context.Context, opts LoadListOptions) ([]LoadRecord, error)

	// DeleteLoad removes a record by ID or ID prefix.
	DeleteLoad(ctx context.Context, id string) error

	// Close releases the underlying resources.
	Close() error
}
