package pcd

import (
	"errors"
	"fmt"
)

// Sentinels for each failure class. Every typed error below reports true
// for errors.Is against its sentinel.
var (
	ErrParse          = errors.New("parse error")
	ErrEmptyPoseSet   = errors.New("empty pose set: no anchor can be selected")
	ErrDuplicateNode  = errors.New("duplicate node")
	ErrSchema         = errors.New("schema error")
	ErrColorRange     = errors.New("color range error")
	ErrUnresolvedNode = errors.New("unresolved node")
	ErrIO             = errors.New("io error")

	// ErrFormat marks a columnar document that cannot be read as Parquet at
	// all, before any column is inspected.
	ErrFormat = errors.New("format error")
)

// DocumentIndex is the ParseError index used for failures that concern the
// pose document as a whole rather than one record.
const DocumentIndex = -1

// ParseError reports a malformed pose record.
type ParseError struct {
	Index  int    // record index, or DocumentIndex
	Field  string // JSON field name, empty when not field specific
	Reason string
	Err    error // underlying decode error, may be nil
}

func (e *ParseError) Error() string {
	where := "pose document"
	if e.Index != DocumentIndex {
		where = fmt.Sprintf("pose record %d", e.Index)
	}
	if e.Field != "" {
		where += " field " + e.Field
	}
	msg := fmt.Sprintf("%v: %s: %s", ErrParse, where, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }
func (e *ParseError) Unwrap() error        { return e.Err }

// DuplicateNodeError reports two pose records sharing a node id.
type DuplicateNodeError struct {
	NodeID        string
	First, Second int // record indices
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("%v: node %q appears in pose records %d and %d", ErrDuplicateNode, e.NodeID, e.First, e.Second)
}

func (e *DuplicateNodeError) Is(target error) bool { return target == ErrDuplicateNode }

// SchemaError reports a required column that is absent, mistyped, or holds a
// null where a value is required. Batch and Row are -1 when not applicable.
type SchemaError struct {
	Column string
	Batch  int
	Row    int
	Reason string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("%v: column %q: %s", ErrSchema, e.Column, e.Reason)
	if e.Batch >= 0 {
		msg += fmt.Sprintf(" (batch %d", e.Batch)
		if e.Row >= 0 {
			msg += fmt.Sprintf(", row %d", e.Row)
		}
		msg += ")"
	}
	return msg
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ColorRangeError reports a colour value that does not fit in 0..255.
type ColorRangeError struct {
	Column string
	Batch  int
	Row    int
	Value  int64
}

func (e *ColorRangeError) Error() string {
	return fmt.Sprintf("%v: column %q batch %d row %d: value %d outside 0-255", ErrColorRange, e.Column, e.Batch, e.Row, e.Value)
}

func (e *ColorRangeError) Is(target error) bool { return target == ErrColorRange }

// UnresolvedNodeError reports a point whose node has no transform.
type UnresolvedNodeError struct {
	NodeID string
	Index  int // position of the point in the PointCloud
}

func (e *UnresolvedNodeError) Error() string {
	return fmt.Sprintf("%v: point %d references node %q with no pose", ErrUnresolvedNode, e.Index, e.NodeID)
}

func (e *UnresolvedNodeError) Is(target error) bool { return target == ErrUnresolvedNode }

// IOError wraps a failure to obtain a document's bytes.
type IOError struct {
	Document string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%v: reading %s: %v", ErrIO, e.Document, e.Err)
}

func (e *IOError) Is(target error) bool { return target == ErrIO }
func (e *IOError) Unwrap() error        { return e.Err }
