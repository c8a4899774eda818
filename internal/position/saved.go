package position

import (
	"encoding/json"
	"fmt"
)

// Saved is the persisted payload for one chapter.
type Saved struct {
	Current        float64  `json:"current"`
	Total          float64  `json:"total"`
	StructuralPath []int    `json:"structuralPath,omitempty"`
	RelativeOffset *float64 `json:"relativeOffset,omitempty"`
}

// HasAnchor reports whether the entry carries a structural position, not
// just a progress index.
func (s Saved) HasAnchor() bool {
	return s.StructuralPath != nil && s.RelativeOffset != nil
}

// Completed reports whether the entry was saved on the last unit.
func (s Saved) Completed() bool {
	return s.Current == s.Total
}

// LoadPolicy decides whether completed entries are offered for resume.
type LoadPolicy string

const (
	// DiscardCompleted treats an entry with current == total as absent.
	DiscardCompleted LoadPolicy = "discard-completed"
	// KeepCompleted returns completed entries like any other.
	KeepCompleted LoadPolicy = "keep-completed"
)

// ParseLoadPolicy maps a config string to a policy.
func ParseLoadPolicy(s string) (LoadPolicy, error) {
	switch LoadPolicy(s) {
	case "", DiscardCompleted:
		return DiscardCompleted, nil
	case KeepCompleted:
		return KeepCompleted, nil
	default:
		return "", fmt.Errorf("position: unknown load policy %q", s)
	}
}

// Admits reports whether s survives the policy.
func (p LoadPolicy) Admits(s Saved) bool {
	return p == KeepCompleted || !s.Completed()
}

func decodeSaved(data []byte) (Saved, error) {
	var s Saved
	if err := json.Unmarshal(data, &s); err != nil {
		return Saved{}, fmt.Errorf("position: decode: %w", err)
	}
	return s, nil
}
