package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/trialdash/trialdash/pkg/types"
	"github.com/trialdash/trialdash/server/internal/compute"
)

// Result is the structured outcome of validating a document.
type Result struct {
	Valid          bool     `json:"valid"`
	Errors         []string `json:"errors"`
	ResourcesCount int      `json:"resources_count"`
	TrialsCount    int      `json:"trials_count"`
}

// ValidationError carries every problem found in a rejected document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("ingest: %d validation error(s): %s", len(e.Errors), strings.Join(e.Errors, "; "))
}

// capacityKeys are the nested objects that may hold quarter columns.
var capacityKeys = []string{"quarterly_capacity", "quarterly_data"}

// maxSubjects bounds a trial's subject count so it always fits an int.
const maxSubjects = math.MaxInt32

// dateLayouts are the accepted trial date formats.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "1/2/2006", "01-02-06"}

// Validate checks doc without building a dataset.
func Validate(doc map[string]any) Result {
	_, res := Build(doc)
	return res
}

// Build validates doc and converts it to a Dataset. The dataset is nil when
// the result is not valid.
func Build(doc map[string]any) (*types.Dataset, Result) {
	b := &builder{}
	res := Result{Errors: []string{}}

	rawResources, hasResources := doc["resources"]
	rawTrials, hasTrials := doc["trials"]
	if !hasResources {
		b.fail("Missing 'resources' field")
	}
	if !hasTrials {
		b.fail("Missing 'trials' field")
	}
	if len(b.errs) > 0 {
		res.Errors = b.errs
		return nil, res
	}

	resources, ok := rawResources.([]any)
	if !ok {
		b.fail("'resources' must be a list")
	}
	trials, ok := rawTrials.([]any)
	if !ok {
		b.fail("'trials' must be a list")
	}
	res.ResourcesCount = len(resources)
	res.TrialsCount = len(trials)

	ds := &types.Dataset{
		Resources: make([]types.Resource, 0, len(resources)),
		Trials:    make([]types.Trial, 0, len(trials)),
	}
	for i, raw := range resources {
		if r, ok := b.resource(i, raw); ok {
			ds.Resources = append(ds.Resources, r)
		}
	}
	for i, raw := range trials {
		if t, ok := b.trial(i, raw); ok {
			ds.Trials = append(ds.Trials, t)
		}
	}

	if len(b.errs) > 0 {
		res.Errors = b.errs
		return nil, res
	}
	res.Valid = true
	return ds, res
}

// builder accumulates validation messages while converting records.
type builder struct {
	errs []string
}

func (b *builder) fail(format string, args ...any) {
	b.errs = append(b.errs, fmt.Sprintf(format, args...))
}

func (b *builder) resource(i int, raw any) (types.Resource, bool) {
	prefix := fmt.Sprintf("Resource %d", i)
	obj, ok := raw.(map[string]any)
	if !ok {
		b.fail("%s: must be an object", prefix)
		return types.Resource{}, false
	}
	before := len(b.errs)

	r := types.Resource{
		Name:       b.name(prefix, obj),
		Area:       b.area(prefix, obj),
		Capacity:   make(map[string]float64),
		Attributes: make(map[string]any),
	}
	for _, key := range sortedKeys(obj) {
		v := obj[key]
		switch {
		case key == "name" || key == "area":
		case isCapacityKey(key):
			nested, ok := v.(map[string]any)
			if !ok {
				b.fail("%s: %s must be an object", prefix, key)
				continue
			}
			rest := make(map[string]any)
			for _, q := range sortedKeys(nested) {
				if compute.IsQuarter(q) {
					b.capacity(prefix, r.Capacity, q, nested[q])
				} else {
					rest[q] = plain(nested[q])
				}
			}
			// Non-quarter entries stay under their original key.
			if len(rest) > 0 {
				r.Attributes[key] = rest
			}
		case compute.IsQuarter(key):
			b.capacity(prefix, r.Capacity, key, v)
		default:
			r.Attributes[key] = plain(v)
		}
	}
	return r, len(b.errs) == before
}

func (b *builder) capacity(prefix string, into map[string]float64, quarter string, v any) {
	f, ok := number(v)
	if !ok {
		b.fail("%s: quarter %s must have numeric value", prefix, quarter)
		return
	}
	if f < 0 {
		b.fail("%s: quarter %s cannot have negative value", prefix, quarter)
		return
	}
	into[quarter] = f
}

func (b *builder) trial(i int, raw any) (types.Trial, bool) {
	prefix := fmt.Sprintf("Trial %d", i)
	obj, ok := raw.(map[string]any)
	if !ok {
		b.fail("%s: must be an object", prefix)
		return types.Trial{}, false
	}
	before := len(b.errs)

	t := types.Trial{
		Name:       b.name(prefix, obj),
		Area:       b.area(prefix, obj),
		Subjects:   b.subjects(prefix, obj),
		Attributes: make(map[string]any),
	}
	start, startOK := b.date(prefix, obj, "start_date")
	end, endOK := b.date(prefix, obj, "end_date")
	t.StartDate = stringField(obj, "start_date")
	t.EndDate = stringField(obj, "end_date")
	if startOK && endOK && !start.IsZero() && !end.IsZero() && end.Before(start) {
		b.fail("%s: end_date cannot be before start_date", prefix)
	}

	for key, v := range obj {
		switch key {
		case "name", "area", "subjects", "start_date", "end_date":
		default:
			t.Attributes[key] = plain(v)
		}
	}
	return t, len(b.errs) == before
}

func (b *builder) name(prefix string, obj map[string]any) string {
	v, ok := obj["name"]
	if !ok {
		b.fail("%s: missing 'name' field", prefix)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		b.fail("%s: name must be a string", prefix)
		return ""
	}
	if strings.TrimSpace(s) == "" {
		b.fail("%s: name cannot be empty", prefix)
	}
	return s
}

// area returns the record's area, substituting types.AreaUnknown when the
// field is missing, null or blank.
func (b *builder) area(prefix string, obj map[string]any) string {
	v, ok := obj["area"]
	if !ok || v == nil {
		return types.AreaUnknown
	}
	s, ok := v.(string)
	if !ok {
		b.fail("%s: area must be a string", prefix)
		return ""
	}
	return compute.AreaName(s)
}

func (b *builder) subjects(prefix string, obj map[string]any) int {
	v, ok := obj["subjects"]
	if !ok {
		b.fail("%s: missing 'subjects' field", prefix)
		return 0
	}
	f, ok := number(v)
	if !ok {
		b.fail("%s: subjects must be an integer", prefix)
		return 0
	}
	if f != math.Trunc(f) {
		b.fail("%s: subjects must be an integer", prefix)
		return 0
	}
	if f <= 0 {
		b.fail("%s: subjects must be positive", prefix)
		return 0
	}
	if f > maxSubjects {
		b.fail("%s: subjects out of range", prefix)
		return 0
	}
	return int(f)
}

// date checks a required date string. An empty string is accepted and
// yields the zero time.
func (b *builder) date(prefix string, obj map[string]any, key string) (time.Time, bool) {
	v, ok := obj[key]
	if !ok {
		b.fail("%s: missing '%s' field", prefix, key)
		return time.Time{}, false
	}
	s, ok := v.(string)
	if !ok {
		b.fail("%s: %s must be a string", prefix, key)
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	b.fail("%s: %s %q is not a valid date", prefix, key, s)
	return time.Time{}, false
}

func isCapacityKey(key string) bool {
	for _, k := range capacityKeys {
		if key == k {
			return true
		}
	}
	return false
}

func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// number converts a decoded value to a finite float64. Booleans and strings
// are not numbers.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// plain replaces json.Number values with int64 or float64 so attributes
// re-encode as ordinary numbers.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = plain(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			out[i] = plain(vv)
		}
		return out
	default:
		return v
	}
}
