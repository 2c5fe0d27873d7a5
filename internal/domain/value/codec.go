// Package value maps native Go values onto the scalar kinds the storage
// engine accepts (null, integer, float, text) and back.
//
// Values outside that domain are serialized with msgpack, compressed with
// zstd, base64-encoded and prefixed with Sentinel so Decode can recognize them.
package value

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel prefixes every opaque-encoded value.
const Sentinel = "nosqlite:blob:"

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Encode converts v to a storage-safe scalar.
func Encode(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return text(x)
	case int64:
		return x, nil
	case float64:
		return x, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return text(rv.String())
	case reflect.Bool:
		return Encode(rv.Bool())
	}

	return encodeOpaque(v)
}

// Decode reverses Encode. Non-sentinel values are returned unchanged.
func Decode(v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, Sentinel) {
		return v, nil
	}
	return decodeOpaque(s)
}

// IsOpaque reports whether v is an opaque-encoded value.
func IsOpaque(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, Sentinel)
}

// EncodeAll encodes every element of vs into a new slice.
func EncodeAll(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		enc, err := Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode value %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

// DecodeAll decodes every element of vs into a new slice.
func DecodeAll(vs []any) ([]any, error) {
	out := make([]any, len(vs))
	for i, v := range vs {
		dec, err := Decode(v)
		if err != nil {
			return nil, fmt.Errorf("decode value %d: %w", i, err)
		}
		out[i] = dec
	}
	return out, nil
}

// text stores s verbatim unless it would be mistaken for an opaque value on
// the way back, in which case it is wrapped like one.
func text(s string) (any, error) {
	if strings.HasPrefix(s, Sentinel) {
		return encodeOpaque(s)
	}
	return s, nil
}

func encodeOpaque(v any) (string, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize %T: %w", v, err)
	}
	compressed := encoder.EncodeAll(raw, nil)
	return Sentinel + base64.StdEncoding.EncodeToString(compressed), nil
}

func decodeOpaque(s string) (any, error) {
	compressed, err := base64.StdEncoding.DecodeString(s[len(Sentinel):])
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	return NormalizeInts(out), nil
}

// NormalizeInts folds unsigned integers that fit into int64, in place. msgpack
// writes non-negative ints with unsigned codes.
func NormalizeInts(v any) any {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case []any:
		for i := range x {
			x[i] = NormalizeInts(x[i])
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = NormalizeInts(e)
		}
		return x
	default:
		return v
	}
}
