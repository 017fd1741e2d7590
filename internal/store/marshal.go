package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
)

// marshalLocation converts a location to canonical JSON TEXT. Zero fields
// are left out, matching the json tags of diag.Location.
func marshalLocation(l diag.Location) (string, error) {
	obj := ir.IRObject{}
	str := func(key, v string) {
		if v != "" {
			obj[key] = ir.IRString(v)
		}
	}
	str("controller", l.Controller)
	str("program", l.Program)
	str("routine", l.Routine)
	str("block", l.Block)
	if l.Rung != nil {
		obj["rung"] = ir.IRInt(*l.Rung)
	}
	if l.Sheet != nil {
		obj["sheet"] = ir.IRInt(*l.Sheet)
	}
	if l.Line != 0 {
		obj["line"] = ir.IRInt(l.Line)
	}
	if l.Column != 0 {
		obj["column"] = ir.IRInt(l.Column)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal location: %w", err)
	}
	return string(data), nil
}

// marshalDetails converts diagnostic details to canonical JSON TEXT.
func marshalDetails(details map[string]string) (string, error) {
	obj := make(ir.IRObject, len(details))
	for k, v := range details {
		obj[k] = ir.IRString(v)
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return string(data), nil
}

func unmarshalLocation(data string) (diag.Location, error) {
	var l diag.Location
	if data == "" || data == "{}" {
		return l, nil
	}
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return diag.Location{}, fmt.Errorf("unmarshal location: %w", err)
	}
	return l, nil
}

// unmarshalDetails returns nil for an empty object so a read diagnostic
// equals the one written.
func unmarshalDetails(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return m, nil
}
