package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opendub/engine/internal/core/jsonrepair"
	"github.com/opendub/engine/internal/core/pipeline"
)

// errMalformedJSON marks a translator response that failed to parse as JSON
// even after the full repair ladder.
var errMalformedJSON = errors.New("translate: malformed JSON response")

// RepairJSONArray runs the bounded mechanical-fix ladder over a malformed
// JSON-array response, then (if still broken) issues a single repair prompt
// through repairFn. Returns the parsed array, or an error the caller should
// treat as exhausted (advance to the next engine in the fallback chain).
func RepairJSONArray(ctx context.Context, raw string, want int, repairFn func(ctx context.Context, broken string) (string, error)) ([]string, error) {
	if out, err := tryParseArray(raw, want); err == nil {
		return out, nil
	}

	mechanical := jsonrepair.MechanicalFix(raw)
	if out, err := tryParseArray(mechanical, want); err == nil {
		return out, nil
	}

	if repairFn == nil {
		return nil, pipeline.NewMalformedResponseError(fmt.Errorf("%w: mechanical repair failed, no repair prompt available", errMalformedJSON))
	}

	fixed, err := repairFn(ctx, raw)
	if err != nil {
		return nil, pipeline.NewMalformedResponseError(fmt.Errorf("%w: repair prompt failed: %v", errMalformedJSON, err))
	}
	if out, err := tryParseArray(fixed, want); err == nil {
		return out, nil
	}
	if out, err := tryParseArray(jsonrepair.MechanicalFix(fixed), want); err == nil {
		return out, nil
	}

	return nil, fmt.Errorf("%w: repair prompt did not produce valid JSON", errMalformedJSON)
}

func tryParseArray(raw string, want int) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if len(out) != want {
		return nil, fmt.Errorf("expected %d elements, got %d", want, len(out))
	}
	return out, nil
}
