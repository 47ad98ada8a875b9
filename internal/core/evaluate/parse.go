package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opendub/engine/internal/core/jsonrepair"
)

// parseReport decodes the evaluator's JSON object response, running the
// bounded mechanical-fix ladder and then (if still broken) a single repair
// call through repairFn before giving up.
func parseReport(ctx context.Context, raw string, repairFn func(ctx context.Context, broken string) (string, error)) (*rawReport, error) {
	if r, err := tryParseReport(raw); err == nil {
		return r, nil
	}

	mechanical := jsonrepair.MechanicalFix(raw)
	if r, err := tryParseReport(mechanical); err == nil {
		return r, nil
	}

	if repairFn == nil {
		return nil, fmt.Errorf("mechanical repair failed, no repair prompt available")
	}

	fixed, err := repairFn(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("repair prompt failed: %w", err)
	}
	if r, err := tryParseReport(fixed); err == nil {
		return r, nil
	}
	if r, err := tryParseReport(jsonrepair.MechanicalFix(fixed)); err == nil {
		return r, nil
	}

	return nil, fmt.Errorf("repair prompt did not produce valid JSON")
}

func tryParseReport(raw string) (*rawReport, error) {
	var r rawReport
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// isQuotaErr reports whether err looks like a quota/429 response, the
// signal that triggers an immediate switch to the secondary provider.
func isQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}
