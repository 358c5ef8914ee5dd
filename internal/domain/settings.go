package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// All is the wildcard value for language and genre filters.
const All = "all"

// Filter selects a subset of the question bank.
type Filter struct {
	Langs        []string `json:"langs"`
	Genres       []string `json:"genres"`
	Count        string   `json:"count"`
	Difficulties []int    `json:"difficulties"`
}

// Settings is a Filter plus the beginner flag; it is the shape of persisted and named presets.
type Settings struct {
	Filter
	Beginner bool `json:"beginner"`
}

// DefaultFilter selects the whole bank.
func DefaultFilter() Filter {
	return Filter{
		Langs:        []string{All},
		Genres:       []string{All},
		Count:        All,
		Difficulties: []int{1, 2, 3},
	}
}

// IsAll reports whether values is the ["all"] wildcard (or empty).
func IsAll(values []string) bool {
	return len(values) == 0 || (len(values) == 1 && values[0] == All)
}

// FixedPresets is the built-in preset table available regardless of bank content.
func FixedPresets() map[string]Settings {
	basics := []string{"conditions", "loops", "arrays", "strings"}
	return map[string]Settings{
		"beginner":       {Filter: Filter{Count: "10", Difficulties: []int{1}, Langs: []string{"csharp"}, Genres: []string{"conditions"}}, Beginner: true},
		"standard":       {Filter: Filter{Count: "10", Difficulties: []int{1, 2}, Langs: []string{"csharp"}, Genres: []string{"conditions", "loops"}}},
		"advanced":       {Filter: Filter{Count: "10", Difficulties: []int{2, 3}, Langs: []string{"csharp"}, Genres: basics}},
		"conditionsOnly": {Filter: Filter{Count: "10", Difficulties: []int{1, 2, 3}, Langs: []string{"csharp"}, Genres: []string{"conditions"}}},
		"mixBasics":      {Filter: Filter{Count: "10", Difficulties: []int{1}, Langs: []string{"csharp"}, Genres: basics}, Beginner: true},
	}
}

// FallbackPreset is applied when a forced preset name resolves to nothing.
const FallbackPreset = "beginner"

type rawSettings struct {
	Count        json.RawMessage   `json:"count"`
	Beginner     json.RawMessage   `json:"beginner"`
	Difficulties []json.RawMessage `json:"difficulties"`
	Langs        []json.RawMessage `json:"langs"`
	Genres       []json.RawMessage `json:"genres"`
}

// NormalizeSettings coerces a loosely-shaped preset object into Settings.
// Missing or invalid fields default to count "10", beginner false,
// difficulties [1,2,3] and langs/genres ["all"]. It fails only when raw is not a JSON object.
func NormalizeSettings(raw json.RawMessage) (Settings, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Settings{}, ErrInvalidImport
	}
	var in rawSettings
	if err := json.Unmarshal(trimmed, &in); err != nil {
		// Arrays or mistyped fields: retry leniently field by field.
		var obj map[string]json.RawMessage
		if err2 := json.Unmarshal(trimmed, &obj); err2 != nil {
			return Settings{}, ErrInvalidImport
		}
		in = rawSettings{Count: obj["count"], Beginner: obj["beginner"]}
		_ = json.Unmarshal(obj["difficulties"], &in.Difficulties)
		_ = json.Unmarshal(obj["langs"], &in.Langs)
		_ = json.Unmarshal(obj["genres"], &in.Genres)
	}

	out := Settings{Filter: Filter{Count: "10"}}
	var count string
	if len(in.Count) > 0 && in.Count[0] == '"' && json.Unmarshal(in.Count, &count) == nil {
		out.Count = count
	}
	out.Beginner = truthy(in.Beginner)

	for _, d := range in.Difficulties {
		if n, ok := toNumber(d); ok && (n == 1 || n == 2 || n == 3) {
			out.Difficulties = append(out.Difficulties, int(n))
		}
	}
	if len(out.Difficulties) == 0 {
		out.Difficulties = []int{1, 2, 3}
	}

	out.Langs = toStrings(in.Langs)
	out.Genres = toStrings(in.Genres)
	return out, nil
}

// Normalize applies the same defaults to an already typed value.
func (s Settings) Normalize() Settings {
	raw, _ := json.Marshal(s)
	out, err := NormalizeSettings(raw)
	if err != nil {
		return s
	}
	return out
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func toNumber(raw json.RawMessage) (float64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toStrings(items []json.RawMessage) []string {
	if len(items) == 0 {
		return []string{All}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var v any
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		case bool:
			out = append(out, strconv.FormatBool(t))
		}
	}
	if len(out) == 0 {
		return []string{All}
	}
	return out
}
