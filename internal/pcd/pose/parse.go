// Package pose decodes pose documents and re-centers node poses on an anchor.
//
// A pose document looks like
//
//	{"poses": [{"nodeUuid": "…", "optPos": [m00, m01, m02, m03, m10, …, m33]}]}
//
// where optPos is the row-major flattening of the node's 4×4 transform.
package pose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/tailscale/hujson"

	"github.com/banshee-data/pcdview/internal/pcd"
)

// Field names in the pose document.
const (
	FieldPoses  = "poses"
	FieldNodeID = "nodeUuid"
	FieldMatrix = "optPos"
)

type document struct {
	Poses *[]json.RawMessage `json:"poses"`
}

// record uses pointers so that absent fields and JSON nulls are detectable.
type record struct {
	NodeID *string    `json:"nodeUuid"`
	OptPos []*float64 `json:"optPos"`
}

// ParsePoses decodes a pose document. It only checks structure and numeric
// types; values keep full double precision for re-centering.
//
// The input may use JWCC extensions (comments, trailing commas); plain JSON
// decodes identically.
func ParsePoses(data []byte) ([]pcd.RawPose, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, &pcd.ParseError{Index: pcd.DocumentIndex, Reason: "invalid JSON", Err: err}
	}

	var doc document
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, &pcd.ParseError{Index: pcd.DocumentIndex, Reason: "not a pose document", Err: err}
	}
	if doc.Poses == nil {
		return nil, &pcd.ParseError{Index: pcd.DocumentIndex, Field: FieldPoses, Reason: "missing list"}
	}

	raw := *doc.Poses
	poses := make([]pcd.RawPose, 0, len(raw))
	for i, msg := range raw {
		p, err := parseRecord(i, msg)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	pcd.Diagf("parsed %d poses", len(poses))
	return poses, nil
}

func parseRecord(i int, msg json.RawMessage) (pcd.RawPose, error) {
	var rec record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return pcd.RawPose{}, &pcd.ParseError{Index: i, Reason: "malformed record", Err: err}
	}
	if rec.NodeID == nil {
		return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldNodeID, Reason: "missing"}
	}
	if *rec.NodeID == "" {
		return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldNodeID, Reason: "empty"}
	}
	if rec.OptPos == nil {
		return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldMatrix, Reason: "missing"}
	}
	if len(rec.OptPos) != 16 {
		return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldMatrix,
			Reason: fmt.Sprintf("has %d entries, want 16", len(rec.OptPos))}
	}

	p := pcd.RawPose{NodeID: *rec.NodeID}
	for j, v := range rec.OptPos {
		if v == nil {
			return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldMatrix,
				Reason: fmt.Sprintf("entry %d is null", j)}
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return pcd.RawPose{}, &pcd.ParseError{Index: i, Field: FieldMatrix,
				Reason: fmt.Sprintf("entry %d is not finite", j)}
		}
		p.Entries[j] = *v
	}
	return p, nil
}

// Encode writes poses as a pose document.
func Encode(w io.Writer, poses []pcd.RawPose) error {
	type outRecord struct {
		NodeID string      `json:"nodeUuid"`
		OptPos [16]float64 `json:"optPos"`
	}
	out := struct {
		Poses []outRecord `json:"poses"`
	}{Poses: make([]outRecord, len(poses))}
	for i, p := range poses {
		out.Poses[i] = outRecord{NodeID: p.NodeID, OptPos: p.Entries}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode pose document: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
