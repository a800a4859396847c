package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Keyer derives deterministic cache keys from a computation's identity
// and its input arguments.
//
// Contract:
// - Determinism: same identity and inputs must produce the same key,
//   regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a cache key for the computation identified by id
	// with the given input arguments.
	Key(id string, input any) (string, error)
}

// DefaultKeyer derives SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic cache key.
// Format: tagcache:<id>:<hash>
// where hash is the first 16 hex characters of SHA-256(canonical JSON(input)).
func (k *DefaultKeyer) Key(id string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: canonicalize input: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("tagcache:%s:%s", id, hex.EncodeToString(sum[:8])), nil
}

// canonicalize produces a deterministic JSON representation of the
// input. Map keys are sorted; array order is preserved.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		return append(out, '}'), nil
	case []any:
		out := []byte("[")
		for i, item := range val {
			if i > 0 {
				out = append(out, ',')
			}
			vb, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		return append(out, ']'), nil
	default:
		return json.Marshal(v)
	}
}

// ValidateKey checks whether a key is usable for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
