package cad

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Element records are stored one per bbolt key. The key is the 8-byte
// big-endian ElementID (big-endian so bucket order matches ID order).
//
// Record layout, little-endian:
//
//	Byte 0:     kind
//	Byte 1:     flags - bit0 hasFill, bit1 hasArc, bit2 hasText
//	Bytes 2-3:  level (uint16)
//	Bytes 4-7:  graphic group (uint32)
//	Bytes 8-9:  color index (uint16)
//	Byte 10:    weight
//	Byte 11:    line style
//	[fill]      fill color index (uint16)
//	point count (uint32), then 24 bytes per point (3 x float64)
//	[arc]       center (24) + radius (8) + start angle (8) + sweep (8)
//	[text]      origin (24) + font (uint16) + height (8) + rotation (8)
//	            + length-prefixed text (uint32 + native-encoding bytes)
//	child count (uint32), then 8 bytes per child ID (uint64)
const (
	flagFill = 1 << 0
	flagArc  = 1 << 1
	flagText = 1 << 2
)

// elementKey returns the bucket key for an element ID.
func elementKey(id ElementID) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

// modelKey returns the bucket key for a model slot. Models are keyed by
// creation index so enumeration order survives the round trip.
func modelKey(index int) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(index))
	return key
}

// encodeElement serializes an element record. Child elements are referenced
// by identity; they have their own records.
func encodeElement(el *Element, services *Services) []byte {
	buf := make([]byte, 12, 64)
	buf[0] = byte(el.Kind)
	if el.Fill != nil {
		buf[1] |= flagFill
	}
	if el.Arc != nil {
		buf[1] |= flagArc
	}
	if el.Text != nil {
		buf[1] |= flagText
	}
	binary.LittleEndian.PutUint16(buf[2:4], uint16(el.Level))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(el.GraphicGroup))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(el.ColorIndex))
	buf[10] = byte(el.Weight)
	buf[11] = byte(el.LineStyle)

	if el.Fill != nil {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(el.Fill.ColorIndex))
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(el.Points)))
	for _, p := range el.Points {
		buf = appendPoint(buf, p)
	}

	if el.Arc != nil {
		buf = appendPoint(buf, el.Arc.Center)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(el.Arc.Radius))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(el.Arc.StartAngle))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(el.Arc.SweepAngle))
	}

	if el.Text != nil {
		buf = appendPoint(buf, el.Text.Origin)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(el.Text.FontID))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(el.Text.Height))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(el.Text.Rotation))
		encoded := services.EncodeText(el.Text.Value)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(encoded)))
		buf = append(buf, encoded...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(el.Children)))
	for _, child := range el.Children {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(child.ID))
	}
	return buf
}

// decodeElement parses an element record. Child pointers are left as
// identities in childIDs for the caller to resolve once the whole arena is
// loaded.
func decodeElement(key, data []byte, services *Services) (*Element, error) {
	if len(key) != 8 {
		return nil, fmt.Errorf("element key must be 8 bytes, got %d", len(key))
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("element record too short: %d bytes", len(data))
	}

	el := &Element{
		ID:           ElementID(binary.BigEndian.Uint64(key)),
		Kind:         Kind(data[0]),
		Level:        int(binary.LittleEndian.Uint16(data[2:4])),
		GraphicGroup: int(binary.LittleEndian.Uint32(data[4:8])),
		ColorIndex:   int(binary.LittleEndian.Uint16(data[8:10])),
		Weight:       int(data[10]),
		LineStyle:    int(data[11]),
	}
	flags := data[1]
	offset := 12

	if flags&flagFill != 0 {
		if len(data) < offset+2 {
			return nil, fmt.Errorf("truncated fill data")
		}
		el.Fill = &FillData{ColorIndex: int(binary.LittleEndian.Uint16(data[offset:]))}
		offset += 2
	}

	if len(data) < offset+4 {
		return nil, fmt.Errorf("truncated point count")
	}
	pointCount := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if pointCount > 0 {
		if len(data) < offset+pointCount*24 {
			return nil, fmt.Errorf("truncated point data: want %d points", pointCount)
		}
		el.Points = make([]Point3, pointCount)
		for i := range el.Points {
			el.Points[i] = readPoint(data[offset:])
			offset += 24
		}
	}

	if flags&flagArc != 0 {
		if len(data) < offset+48 {
			return nil, fmt.Errorf("truncated arc data")
		}
		arc := &ArcData{Center: readPoint(data[offset:])}
		offset += 24
		arc.Radius = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		arc.StartAngle = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		arc.SweepAngle = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		el.Arc = arc
	}

	if flags&flagText != 0 {
		if len(data) < offset+46 {
			return nil, fmt.Errorf("truncated text data")
		}
		text := &TextData{Origin: readPoint(data[offset:])}
		offset += 24
		text.FontID = int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2
		text.Height = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		text.Rotation = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
		textLen := int(binary.LittleEndian.Uint32(data[offset:]))
		offset += 4
		if len(data) < offset+textLen {
			return nil, fmt.Errorf("truncated text content")
		}
		text.Value = services.DecodeText(data[offset : offset+textLen])
		offset += textLen
		el.Text = text
	}

	if len(data) < offset+4 {
		return nil, fmt.Errorf("truncated child count")
	}
	childCount := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if childCount > 0 {
		if len(data) < offset+childCount*8 {
			return nil, fmt.Errorf("truncated child list: want %d children", childCount)
		}
		el.childIDs = make([]ElementID, childCount)
		for i := range el.childIDs {
			el.childIDs[i] = ElementID(binary.LittleEndian.Uint64(data[offset:]))
			offset += 8
		}
	}
	return el, nil
}

// encodeModel serializes a model record:
// name (uint32 length + native-encoding bytes) + element count (uint32)
// + 8 bytes per top-level element ID. Deleted elements are dropped.
func encodeModel(m *Model, services *Services) []byte {
	name := services.EncodeText(m.name)
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(name)))
	buf = append(buf, name...)

	live := make([]ElementID, 0, len(m.ids))
	for _, id := range m.ids {
		if !m.db.isDeleted(id) {
			live = append(live, id)
		}
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(live)))
	for _, id := range live {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(id))
	}
	return buf
}

// decodeModel parses a model record into its name and top-level IDs.
func decodeModel(data []byte, services *Services) (string, []ElementID, error) {
	if len(data) < 4 {
		return "", nil, fmt.Errorf("model record too short")
	}
	nameLen := int(binary.LittleEndian.Uint32(data))
	offset := 4
	if len(data) < offset+nameLen+4 {
		return "", nil, fmt.Errorf("truncated model record")
	}
	name := services.DecodeText(data[offset : offset+nameLen])
	offset += nameLen

	count := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	if len(data) < offset+count*8 {
		return "", nil, fmt.Errorf("truncated model element list: want %d ids", count)
	}
	ids := make([]ElementID, count)
	for i := range ids {
		ids[i] = ElementID(binary.LittleEndian.Uint64(data[offset:]))
		offset += 8
	}
	return name, ids, nil
}

func appendPoint(buf []byte, p Point3) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.X))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Y))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Z))
	return buf
}

func readPoint(data []byte) Point3 {
	return Point3{
		X: math.Float64frombits(binary.LittleEndian.Uint64(data[0:8])),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(data[8:16])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(data[16:24])),
	}
}
