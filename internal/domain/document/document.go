// Package document renders snapshots as the JSON document accepted by the
// ingestion endpoint:
//
//	{"timestamp": <int>, "bodies": [{"id":<int>,"x":<num>,"y":<num>,"z":<num>}, ...]}
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/bodytrack/internal/domain/model"
)

// ContentType is the media type of an encoded document.
const ContentType = "application/json"

const (
	header    = `{"timestamp": `
	bodiesKey = `, "bodies": [`
	trailer   = `]}`
	// per-body upper bound used to size the buffer
	bodySizeHint = 64
)

// Encode renders s as a JSON document. It never fails: an empty body
// sequence renders as [] and non-finite coordinates render as null.
func Encode(s model.Snapshot) []byte {
	buf := make([]byte, 0, len(header)+len(bodiesKey)+len(trailer)+20+len(s.Bodies)*bodySizeHint)
	buf = append(buf, header...)
	buf = strconv.AppendInt(buf, s.Timestamp, 10)
	buf = append(buf, bodiesKey...)
	if len(s.Bodies) == 0 {
		return append(buf, trailer...)
	}
	for i := range s.Bodies {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendBody(buf, &s.Bodies[i])
	}
	return append(buf, trailer...)
}

func appendBody(buf []byte, p *model.BodyPosition) []byte {
	buf = append(buf, `{"id":`...)
	buf = strconv.AppendUint(buf, uint64(p.ID), 10)
	buf = append(buf, `,"x":`...)
	buf = appendCoord(buf, p.X)
	buf = append(buf, `,"y":`...)
	buf = appendCoord(buf, p.Y)
	buf = append(buf, `,"z":`...)
	buf = appendCoord(buf, p.Z)
	return append(buf, '}')
}

// appendCoord writes the shortest text that round-trips v as a float32,
// always with a fractional part so integers read back as floats.
func appendCoord(buf []byte, v float32) []byte {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}
	start := len(buf)
	buf = strconv.AppendFloat(buf, f, 'f', -1, 32)
	if bytes.IndexByte(buf[start:], '.') < 0 {
		buf = append(buf, ".0"...)
	}
	return buf
}

type wireBody struct {
	ID uint32  `json:"id"`
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	Z  float32 `json:"z"`
}

type wireDocument struct {
	Timestamp *int64      `json:"timestamp"`
	Bodies    *[]wireBody `json:"bodies"`
}

// Decode parses a document produced by Encode. Null coordinates decode as 0.
func Decode(data []byte) (model.Snapshot, error) {
	var doc wireDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Timestamp == nil {
		return model.Snapshot{}, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	if doc.Bodies == nil {
		return model.Snapshot{}, fmt.Errorf("%w: missing bodies", ErrMalformed)
	}

	s := model.Snapshot{
		Timestamp: *doc.Timestamp,
		Bodies:    make([]model.BodyPosition, 0, len(*doc.Bodies)),
	}
	for _, b := range *doc.Bodies {
		s.Bodies = append(s.Bodies, model.BodyPosition{ID: b.ID, X: b.X, Y: b.Y, Z: b.Z})
	}
	return s, nil
}
