package selector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
	"pkrouting/pkg/types"
)

// wireSelector is the textual form of every variant:
//
//	{"pk":["Account1"]}
//	{"pkRangeId":"1","range":{...},"subRange":{...}}
//	{"range":{...}}
type wireSelector struct {
	PK        partitionkey.Key    `json:"pk,omitempty"`
	PKRangeID types.PartitionID   `json:"pkRangeId,omitempty"`
	Range     *partitionkey.Range `json:"range,omitempty"`
	SubRange  *partitionkey.Range `json:"subRange,omitempty"`
}

type renderer struct {
	out wireSelector
}

func (r *renderer) VisitExactKey(s *ExactKey) error {
	r.out.PK = s.key
	return nil
}

func (r *renderer) VisitPhysicalRange(s *PhysicalRange) error {
	boundary := s.partition.Range()
	r.out.PKRangeID = s.partition.ID
	r.out.Range = &boundary
	r.out.SubRange = s.subRange
	return nil
}

func (r *renderer) VisitResolvedInterval(s *ResolvedInterval) error {
	rng := s.rng
	r.out.Range = &rng
	return nil
}

// Render returns the stable textual form of s; Parse is its inverse.
func Render(s Selector) (string, error) {
	var r renderer
	if err := s.Accept(&r); err != nil {
		return "", err
	}
	raw, err := json.Marshal(r.out)
	if err != nil {
		return "", fmt.Errorf("render selector: %w", err)
	}
	return string(raw), nil
}

func render(s Selector) string {
	text, err := Render(s)
	if err != nil {
		return fmt.Sprintf("<invalid selector: %v>", err)
	}
	return text
}

// Parse restores a selector rendered by Render.
func Parse(text string) (Selector, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()

	var w wireSelector
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: selector: %v", dberrors.ErrInvalidArgument, err)
	}

	switch {
	case w.PK != nil:
		if w.PKRangeID != "" || w.Range != nil || w.SubRange != nil {
			return nil, fmt.Errorf("%w: selector mixes pk with range fields", dberrors.ErrInvalidArgument)
		}
		if len(w.PK) == 0 {
			return nil, fmt.Errorf("%w: selector pk is empty", dberrors.ErrInvalidKeyShape)
		}
		return &ExactKey{key: w.PK}, nil

	case w.PKRangeID != "":
		if w.Range == nil {
			return nil, fmt.Errorf("%w: pkRangeId %s without range", dberrors.ErrInvalidArgument, w.PKRangeID)
		}
		if !w.Range.IsMinInclusive || w.Range.IsMaxInclusive {
			return nil, fmt.Errorf("%w: partition boundary %s is not half-open", dberrors.ErrInvalidArgument, w.Range)
		}
		p := routing.Partition{ID: w.PKRangeID, Min: w.Range.Min, Max: w.Range.Max}
		if w.SubRange != nil {
			return NewPhysicalSubRange(p, *w.SubRange)
		}
		return NewPhysicalRange(p)

	case w.Range != nil:
		if w.SubRange != nil {
			return nil, fmt.Errorf("%w: subRange requires pkRangeId", dberrors.ErrInvalidArgument)
		}
		return NewResolvedRange(*w.Range)

	default:
		return nil, fmt.Errorf("%w: selector names no target", dberrors.ErrInvalidArgument)
	}
}
