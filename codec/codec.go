// Package codec converts record values to and from their byte payloads.
// Framed formats such as recordio, sstable and the pebble record database
// delegate the payload encoding of a record to a Codec.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec defines how to serialize/deserialize values of type T.
type Codec[T any] interface {
	Marshal(value T) ([]byte, error)
	// Unmarshal decodes data into value, replacing its previous content.
	Unmarshal(data []byte, value *T) error
}

// Gob implements Codec using Gob encoding.
type Gob[T any] struct{}

func (Gob[T]) Marshal(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gob[T]) Unmarshal(data []byte, value *T) error {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return err
	}
	*value = v
	return nil
}

// JSON implements Codec using encoding/json.
type JSON[T any] struct{}

func (JSON[T]) Marshal(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSON[T]) Unmarshal(data []byte, value *T) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*value = v
	return nil
}

// Func adapts a pair of functions to a Codec.
type Func[T any] struct {
	MarshalFunc   func(T) ([]byte, error)
	UnmarshalFunc func([]byte, *T) error
}

func (f Func[T]) Marshal(value T) ([]byte, error)      { return f.MarshalFunc(value) }
func (f Func[T]) Unmarshal(data []byte, value *T) error { return f.UnmarshalFunc(data, value) }
