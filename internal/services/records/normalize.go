package records

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/svidal-nlive/karaoke-console/internal/models"
)

// envelopeFields are the wrapper field names seen across backend versions for
// enveloped list responses, probed in order.
var envelopeFields = []string{"items", "data", "results", "files"}

// normalizeList turns any of the three list payload shapes the backend is
// known to produce (bare array, keyed map, envelope with a named array field)
// into one flat, deterministically ordered record slice.
func normalizeList(body []byte) ([]models.PipelineRecord, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}

	switch v := payload.(type) {
	case nil:
		return []models.PipelineRecord{}, nil
	case []interface{}:
		return fromArray(v)
	case map[string]interface{}:
		for _, field := range envelopeFields {
			if arr, ok := v[field].([]interface{}); ok {
				return fromArray(arr)
			}
		}
		return fromKeyedMap(v)
	default:
		return nil, fmt.Errorf("unsupported list payload shape %T", payload)
	}
}

// fromArray normalizes a bare (or unwrapped) array, preserving order.
func fromArray(items []interface{}) ([]models.PipelineRecord, error) {
	records := make([]models.PipelineRecord, 0, len(items))
	for i, item := range items {
		raw, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("list item %d is %T, expected object", i, item)
		}
		records = append(records, normalizeRecord(raw, ""))
	}
	return records, nil
}

// fromKeyedMap normalizes an object whose values are the items. Map iteration
// order is not deterministic, so keys are sorted; the key doubles as the
// identity fallback. Keys are unique by construction, so nothing collides or
// gets dropped.
func fromKeyedMap(m map[string]interface{}) ([]models.PipelineRecord, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]models.PipelineRecord, 0, len(keys))
	for _, key := range keys {
		raw, ok := m[key].(map[string]interface{})
		if !ok {
			// A scalar value still names a file the backend knows about;
			// keep it as a bare record rather than dropping it.
			records = append(records, models.PipelineRecord{ID: key, Filename: key})
			continue
		}
		records = append(records, normalizeRecord(raw, key))
	}
	return records, nil
}

// normalizeRecord derives the stable record from a raw backend item.
// Identity precedence: filename field, id field, then the map key the item
// arrived under. The same underlying record therefore always derives the same
// id, whatever response shape carried it.
func normalizeRecord(raw map[string]interface{}, fallbackKey string) models.PipelineRecord {
	rec := models.PipelineRecord{
		Filename:  stringField(raw, "filename"),
		Status:    models.NormalizeStatus(stringField(raw, "status")),
		LastError: lastErrorField(raw),
	}

	switch {
	case rec.Filename != "":
		rec.ID = rec.Filename
	case stringField(raw, "id") != "":
		rec.ID = stringField(raw, "id")
	default:
		rec.ID = fallbackKey
	}
	if rec.Filename == "" {
		rec.Filename = rec.ID
	}

	if stages, ok := raw["stages"].(map[string]interface{}); ok {
		rec.Stages = make(map[string]models.StageResult, len(stages))
		for name, result := range stages {
			if m, ok := result.(map[string]interface{}); ok {
				rec.Stages[name] = models.StageResult(m)
			} else {
				rec.Stages[name] = models.StageResult{"value": result}
			}
		}
	}

	return rec
}

// lastErrorField tolerates the field names different backend versions used
// for the failure message.
func lastErrorField(raw map[string]interface{}) string {
	for _, field := range []string{"last_error", "lastError", "error"} {
		if v := stringField(raw, field); v != "" {
			return v
		}
	}
	return ""
}

func stringField(raw map[string]interface{}, field string) string {
	if v, ok := raw[field].(string); ok {
		return v
	}
	return ""
}
