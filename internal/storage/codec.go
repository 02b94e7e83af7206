package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode serializes t as a protobuf Struct of Structs (position -> move ->
// number) and compresses the result with zstd.
func Encode(t *Table) ([]byte, error) {
	root := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(t.values))}
	for key, values := range t.values {
		inner := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(values))}
		for id, v := range values {
			inner.Fields[string(id)] = structpb.NewNumberValue(v)
		}
		root.Fields[string(key)] = structpb.NewStructValue(inner)
	}

	raw, err := proto.MarshalOptions{Deterministic: true}.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal table: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Table, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress table: %w", err)
	}

	root := &structpb.Struct{}
	if err := proto.Unmarshal(raw, root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table: %w", err)
	}

	t := NewTable()
	for key, value := range root.GetFields() {
		inner := value.GetStructValue()
		if inner == nil {
			return nil, fmt.Errorf("position %q: expected struct, got %T", key, value.GetKind())
		}
		values := make(map[MoveID]float64, len(inner.GetFields()))
		for id, v := range inner.GetFields() {
			num, ok := v.GetKind().(*structpb.Value_NumberValue)
			if !ok {
				return nil, fmt.Errorf("position %q move %q: expected number, got %T", key, id, v.GetKind())
			}
			values[MoveID(id)] = num.NumberValue
		}
		t.values[PositionKey(key)] = values
	}
	return t, nil
}
