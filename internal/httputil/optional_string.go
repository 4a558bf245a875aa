package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString distinguishes an absent JSON field from an explicit null,
// which PATCH bodies need:
//   - Present=false: field absent, leave unchanged
//   - Present=true, Value=nil: field is null, restore the default
//   - Present=true, Value=&s: set to s
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only called for fields that appear in the document.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
