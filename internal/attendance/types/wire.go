package types

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a JSON-serialisable payload into a
// google.protobuf.Struct by way of its JSON form, so protobuf and JSON
// clients see the same field names.
func ToStruct(payload any) (*structpb.Struct, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes a google.protobuf.Struct into dst through JSON. A nil
// message leaves dst untouched.
func FromStruct(msg *structpb.Struct, dst any) error {
	if msg == nil {
		return nil
	}
	b, err := msg.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
