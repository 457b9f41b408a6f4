package alerts

import (
	"strconv"
	"strings"

	"github.com/trialdash/trialdash/pkg/types"
)

// evalCondition evaluates a rule condition string against a bottleneck record.
//
// Supported expressions (field operator value):
//
//	net < -1
//	supply <= 0.5
//	demand > 4
//	ntsa >= 1
//	status == overloaded
//	status != balanced
//
// Returns (fires bool, triggering value float64). For status conditions the
// value is the record's net capacity.
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, rec types.BottleneckRecord) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		switch op {
		case "==":
			return rec.Status == rhs, rec.Net
		case "!=":
			return rec.Status != rhs, rec.Net
		default:
			return false, 0
		}
	}

	v, ok := numericField(field, rec)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the record.
func numericField(field string, rec types.BottleneckRecord) (float64, bool) {
	switch field {
	case "net", "bottleneck":
		return rec.Net, true
	case "supply":
		return rec.Supply, true
	case "demand":
		return rec.Demand, true
	case "ntsa":
		return rec.NTSA, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
