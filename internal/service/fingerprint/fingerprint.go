// Package fingerprint computes stable digests of request payloads.
//
// A fingerprint is SHA-256 over a domain prefix, a 0x00 separator and the
// canonical JSON of the payload. Canonical JSON here means:
//   - object keys sorted bytewise (encoding/json map ordering)
//   - strings (keys and values) NFC normalized
//   - integral numbers written as integers, so 1 and 1.0 hash the same
//   - no HTML escaping, no trailing newline
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Domain is mixed into every digest so fingerprints of different request
// kinds never collide. Bump the version when canonicalization changes.
const Domain = "order-svc/create-order/v1"

// Size is the length of a hex encoded fingerprint.
const Size = sha256.Size * 2

var ErrUnsupportedValue = errors.New("unsupported payload value")

// Of returns the hex encoded fingerprint of payload.
func Of(payload map[string]any) (string, error) {
	canonical, err := Canonical(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(Domain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical returns the canonical JSON encoding of v.
func Canonical(v any) ([]byte, error) {
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return val, nil
	case string:
		return norm.NFC.String(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrUnsupportedValue, val)
		}
		return normalize(f)
	case float32:
		return normalize(float64(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, val)
		}
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val), nil
		}
		return val, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			n, err := normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			n, err := normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			key := norm.NFC.String(k)
			if _, dup := out[key]; dup {
				return nil, fmt.Errorf("%w: keys collide after normalization: %q", ErrUnsupportedValue, key)
			}
			out[key] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}
