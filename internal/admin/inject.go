// Package admin implements a REST admin surface: an inject endpoint
// that places a user-built message at the top of the outbound pipeline,
// plus a status endpoint for session introspection.
package admin

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/fix44engine/fix44/fix"
)

// field is one [tag, value] pair as carried in an InjectRequest's Fields
// array.
type field struct {
	Tag   fix.Tag
	Value string
	// Bytes marks Value as base64-encoded raw bytes rather than literal
	// text.
	Bytes bool
}

// UnmarshalJSON accepts the wire shape [tag, value] or [tag, value,
// "base64"] for a bytes-valued field.
func (f *field) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("admin: field entry needs at least [tag, value], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &f.Tag); err != nil {
		return fmt.Errorf("admin: field tag: %w", err)
	}
	var encoding string
	if len(raw) >= 3 {
		if err := json.Unmarshal(raw[2], &encoding); err != nil {
			return fmt.Errorf("admin: field encoding marker: %w", err)
		}
	}
	if encoding == "base64" {
		var b64 string
		if err := json.Unmarshal(raw[1], &b64); err != nil {
			return fmt.Errorf("admin: field value: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return fmt.Errorf("admin: base64 field value: %w", err)
		}
		f.Value = string(decoded)
		f.Bytes = true
		return nil
	}
	if err := json.Unmarshal(raw[1], &f.Value); err != nil {
		return fmt.Errorf("admin: field value: %w", err)
	}
	return nil
}

// InjectRequest is the JSON body accepted by POST /inject for
// cross-process message submission.
type InjectRequest struct {
	Type   string  `json:"type"`
	Fields []field `json:"fields"`
}

// ToMessage builds a *fix.Message from the request body, using dict for
// repeating-group templates when the message type carries any.
func (r *InjectRequest) ToMessage(dict *fix.GroupDict) (*fix.Message, error) {
	if r.Type == "" {
		return nil, fmt.Errorf("admin: inject request missing \"type\"")
	}
	pairs := make([]fix.TagValue, 0, len(r.Fields)+1)
	pairs = append(pairs, fix.TagValue{Tag: fix.TagMsgType, Value: r.Type})
	for _, f := range r.Fields {
		pairs = append(pairs, fix.TagValue{Tag: f.Tag, Value: f.Value})
	}
	return fix.NewMessage(pairs, dict)
}
