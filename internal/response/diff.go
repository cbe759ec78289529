package response

import (
	"bytes"
	"encoding/json"
)

// Change carries both sides of a key whose value differs.
type Change struct {
	Original any `json:"original"`
	Proposed any `json:"proposed"`
}

// Diff is a shallow, one-level comparison used to preview a suggestion.
type Diff struct {
	Added   map[string]any    `json:"added"`
	Removed map[string]any    `json:"removed"`
	Changed map[string]Change `json:"changed"`
}

// Empty reports whether the two sides were identical at the top level.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compare diffs the top-level keys of original and proposed. Values are
// compared by their JSON encoding; structs are flattened through JSON first.
// Non-object inputs compare as empty objects.
func Compare(original, proposed any) Diff {
	a := asObject(original)
	b := asObject(proposed)

	d := Diff{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]Change{},
	}
	for k, bv := range b {
		av, ok := a[k]
		if !ok {
			d.Added[k] = bv
			continue
		}
		if !sameJSON(av, bv) {
			d.Changed[k] = Change{Original: av, Proposed: bv}
		}
	}
	for k, av := range a {
		if _, ok := b[k]; !ok {
			d.Removed[k] = av
		}
	}
	return d
}

func asObject(v any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	var m map[string]any
	if err := remarshal(v, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func sameJSON(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
