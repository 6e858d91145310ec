package records

import (
	"sort"
	"strings"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

// SortOrder is the list sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ListParams mirror the parameters the dashboard's list views send. The
// backend supports none of them, so they are applied client-side over the
// full fetched set.
type ListParams struct {
	Page      int               // 1-based; 0 means no pagination
	PerPage   int               // 0 means all items
	SortField string            // record field name; empty means backend order
	SortOrder SortOrder         // defaults to ASC
	Filter    map[string]string // equality match per field
}

// ListResult is one page of records plus the filtered (not page-sliced) total.
type ListResult struct {
	Items []models.PipelineRecord `json:"items"`
	Total int                     `json:"total"`
}

// applyParams filters, sorts and paginates records client-side. Total is the
// filtered count regardless of which page was requested.
func applyParams(records []models.PipelineRecord, params ListParams) ListResult {
	filtered := records
	if len(params.Filter) > 0 {
		filtered = make([]models.PipelineRecord, 0, len(records))
		for _, rec := range records {
			if matchesFilter(rec, params.Filter) {
				filtered = append(filtered, rec)
			}
		}
	}

	if params.SortField != "" {
		// Copy before sorting so the cached slice keeps backend order.
		sorted := make([]models.PipelineRecord, len(filtered))
		copy(sorted, filtered)
		desc := params.SortOrder == SortDesc
		sort.SliceStable(sorted, func(i, j int) bool {
			a := fieldValue(sorted[i], params.SortField)
			b := fieldValue(sorted[j], params.SortField)
			if desc {
				return a > b
			}
			return a < b
		})
		filtered = sorted
	}

	total := len(filtered)

	if params.Page > 0 && params.PerPage > 0 {
		start := (params.Page - 1) * params.PerPage
		if start >= total {
			return ListResult{Items: []models.PipelineRecord{}, Total: total}
		}
		end := start + params.PerPage
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}

	items := make([]models.PipelineRecord, len(filtered))
	copy(items, filtered)
	return ListResult{Items: items, Total: total}
}

func matchesFilter(rec models.PipelineRecord, filter map[string]string) bool {
	for field, want := range filter {
		if !strings.EqualFold(fieldValue(rec, field), want) {
			return false
		}
	}
	return true
}

// fieldValue resolves a record field by its wire name for sort and filter.
func fieldValue(rec models.PipelineRecord, field string) string {
	switch field {
	case "id":
		return rec.ID
	case "filename":
		return rec.Filename
	case "status":
		return string(rec.Status)
	case "last_error", "lastError":
		return rec.LastError
	default:
		return ""
	}
}
