package progress

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyPrefix starts every persisted position key.
const KeyPrefix = "mangaProgress-"

// Key identifies one chapter of one work on one site.
type Key struct {
	Page       string
	Identifier string
	Chapter    float64
}

// Complete reports whether every part of the key is known.
func (k Key) Complete() bool {
	return k.Page != "" && k.Identifier != "" && k.Chapter != 0
}

// String is the persisted store key: mangaProgress-{page}-{identifier}-{chapter}.
func (k Key) String() string {
	return fmt.Sprintf("%s%s-%s-%s", KeyPrefix, k.Page, k.Identifier,
		strconv.FormatFloat(k.Chapter, 'f', -1, 64))
}

// ParseKey splits a store key back into its parts. Identifiers may contain
// dashes; the page name and chapter may not.
func ParseKey(s string) (Key, error) {
	rest, ok := strings.CutPrefix(s, KeyPrefix)
	if !ok {
		return Key{}, fmt.Errorf("progress: key %q lacks prefix", s)
	}
	page, rest, ok := strings.Cut(rest, "-")
	if !ok {
		return Key{}, fmt.Errorf("progress: key %q has no identifier", s)
	}
	i := strings.LastIndex(rest, "-")
	if i < 0 {
		return Key{}, fmt.Errorf("progress: key %q has no chapter", s)
	}
	ch, err := strconv.ParseFloat(rest[i+1:], 64)
	if err != nil {
		return Key{}, fmt.Errorf("progress: key %q chapter: %w", s, err)
	}
	return Key{Page: page, Identifier: rest[:i], Chapter: ch}, nil
}

// IdentityPolicy decides what SetIdentifier and SetChapter do once a value
// is already known.
type IdentityPolicy string

const (
	// IdentityOverwrite replaces the stored value whenever it differs.
	IdentityOverwrite IdentityPolicy = "overwrite"
	// IdentitySetOnce ignores updates after the first non-empty value.
	IdentitySetOnce IdentityPolicy = "set-once"
)

// ParseIdentityPolicy maps a config string to a policy.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch IdentityPolicy(s) {
	case "", IdentityOverwrite:
		return IdentityOverwrite, nil
	case IdentitySetOnce:
		return IdentitySetOnce, nil
	default:
		return "", fmt.Errorf("progress: unknown identity policy %q", s)
	}
}
