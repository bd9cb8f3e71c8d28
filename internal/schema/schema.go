// Package schema is a narrow stand-in for a config schema compiler: a
// declared list of named, typed fields used to validate/diff
// configuration blobs and to shape dump_info/dump_stats replies. A real
// netifd uses uci_blob_param_list + blobmsg_policy for this; reduced
// here to a plain Go declaration since the compiler itself is an
// external collaborator.
package schema

import "reflect"

type FieldType int

const (
	TypeString FieldType = iota
	TypeBool
	TypeArray
	TypeTable
)

type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Fields is a class's declared config/info/stats schema.
type Fields []Field

// Blob is a parsed configuration or reply payload -- the Go analogue of
// a blob_attr tree, keyed by field name.
type Blob map[string]interface{}

// Diff reports whether two blobs disagree on any field declared in
// fields, mirroring uci_blob_diff's role in ubusdev_bridge_reload: only
// declared fields participate, so unknown/extra keys never trigger a
// spurious restart.
func Diff(fields Fields, a, b Blob) bool {
	for _, f := range fields {
		va, oka := a[f.Name]
		vb, okb := b[f.Name]
		if oka != okb {
			return true
		}
		if oka && !reflect.DeepEqual(va, vb) {
			return true
		}
	}
	return false
}

// Clone copies a blob's top-level keys into a new map, so adding,
// removing or replacing a key in one never affects the other. Nested
// values (arrays, tables) are not copied and stay shared.
func Clone(b Blob) Blob {
	out := make(Blob, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Project copies only the fields declared in fields from src into a
// fresh Blob -- used to shape dump_info/dump_stats replies from a
// handler's raw JSON reply, preserving nesting for arrays and tables.
func Project(fields Fields, src Blob) Blob {
	out := make(Blob, len(fields))
	for _, f := range fields {
		v, ok := src[f.Name]
		if !ok {
			continue
		}
		switch f.Type {
		case TypeString, TypeBool, TypeArray, TypeTable:
			out[f.Name] = v
		}
	}
	return out
}
