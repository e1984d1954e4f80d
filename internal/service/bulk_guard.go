package service

import "coursecatalog/internal/apperr"

// DefaultBulkMaxItems is the batch ceiling used when none is configured.
const DefaultBulkMaxItems = 5

// BulkGuard enforces batch size and shape before any per-item work.
type BulkGuard struct {
	MaxItems int
}

func NewBulkGuard(maxItems int) BulkGuard {
	if maxItems <= 0 {
		maxItems = DefaultBulkMaxItems
	}
	return BulkGuard{MaxItems: maxItems}
}

// ValidateCreate checks the item count of a bulk create. plural names the
// entity, e.g. "chapters".
func (g BulkGuard) ValidateCreate(plural string, n int) error {
	if n == 0 {
		return apperr.InvalidRequest("No %s provided for creation", plural)
	}
	if n > g.MaxItems {
		return apperr.InvalidRequest("Maximum %d %s can be created at once", g.MaxItems, plural)
	}
	return nil
}

// ValidateIDs checks the id list of a bulk update, delete or restore.
func (g BulkGuard) ValidateIDs(plural string, ids []string) error {
	if len(ids) == 0 {
		return apperr.InvalidRequest("No %s ids provided", plural)
	}
	if len(ids) > g.MaxItems {
		return apperr.InvalidRequest("Maximum %d %s can be processed at once", g.MaxItems, plural)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return apperr.InvalidRequest("Empty id in %s request", plural)
		}
		if seen[id] {
			return apperr.InvalidRequest("Duplicate id %s in %s request", id, plural)
		}
		seen[id] = true
	}
	return nil
}

// ValidateParallel checks that ids and payloads pair up one to one.
func (g BulkGuard) ValidateParallel(ids, payloads int) error {
	if ids != payloads {
		return apperr.InvalidRequest("Number of ids (%d) does not match number of updates (%d)", ids, payloads)
	}
	return nil
}
