package util

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyValue = errors.New("empty stored value")

// Codec converts stored bytes to typed values and back.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

type JsonCodec[T any] struct{}

var _ Codec[any] = JsonCodec[any]{}

func NewJsonCodec[T any]() JsonCodec[T] {
	return JsonCodec[T]{}
}

func (JsonCodec[T]) Encode(value T) ([]byte, error) {
	res, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", value, err)
	}
	return res, nil
}

func (JsonCodec[T]) Decode(data []byte) (*T, error) {
	var res T
	if len(data) == 0 {
		return nil, fmt.Errorf("decode %T: %w", res, ErrEmptyValue)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode %T: %w", res, err)
	}
	return &res, nil
}

// DecodeAll decodes every value of a keyed listing. Keys whose value fails
// to decode are returned separately instead of failing the whole listing.
func (c JsonCodec[T]) DecodeAll(values map[string]string) ([]T, map[string]error) {
	out := make([]T, 0, len(values))
	var failed map[string]error
	for key, val := range values {
		v, err := c.Decode([]byte(val))
		if err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[key] = err
			continue
		}
		out = append(out, *v)
	}
	return out, failed
}
