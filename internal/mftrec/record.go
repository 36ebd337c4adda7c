// Package mftrec decodes a single 1024-byte MFT record: its header, and
// the chain of attributes that follows, dispatching on attribute type
// to produce semantic events in on-disk order. Names are recovered with
// a best-effort low-byte extraction rather than a full UTF-16 decode.
package mftrec

import (
	"encoding/binary"
	"fmt"
)

// RecordSize is the fixed MFT record length this engine operates on.
const RecordSize = 1024

// Attribute type constants for the attribute types this package decodes.
const (
	AttrStandardInformation = 0x10
	AttrAttributeList       = 0x20
	AttrFileName            = 0x30
	AttrObjectID            = 0x40
	AttrSecurityDescriptor  = 0x50
	AttrVolumeName          = 0x60
	AttrVolumeInformation   = 0x70
	AttrData                = 0x80
	AttrIndexRoot           = 0x90
	AttrIndexAllocation     = 0xA0
	AttrBitmap              = 0xB0
	AttrReparsePoint        = 0xC0
	AttrEAInformation       = 0xD0
	AttrEA                  = 0xE0
	AttrLoggedUtilityStream = 0x100
	AttrEnd                 = 0xFFFFFFFF
)

const (
	flagInUse     = 0x0001
	flagDirectory = 0x0002
)

// DeletedPolicy selects which reading of the in-use flag the catalogue
// builder applies. A `wFlags == !IN_USE` check classifies ONLY flags==0
// as deleted, which is almost certainly a bug: the corrected reading is
// "bit 0 clear". Both are kept so callers can choose.
type DeletedPolicy int

const (
	// DeletedPolicyLiteral reproduces the literal `flags == 0` check
	// bit-for-bit.
	DeletedPolicyLiteral DeletedPolicy = iota
	// DeletedPolicyCorrected uses `flags & IN_USE == 0`, the intended
	// semantics.
	DeletedPolicyCorrected
)

// Header is the decoded fixed portion of an MFT record.
type Header struct {
	Magic         [4]byte
	AttrsOffset   uint16
	UsedSize      uint32
	Flags         uint16
	RecordNumber  uint32
}

// IsFileRecord reports whether Magic is "FILE" (the "FILE0" variant
// shares the same first four bytes, so this check covers both).
func (h Header) IsFileRecord() bool {
	return string(h.Magic[:]) == "FILE"
}

// IsDirectory reports whether the directory bit is set.
func (h Header) IsDirectory() bool { return h.Flags&flagDirectory != 0 }

// Deleted reports whether this record is a deleted (not in-use) entity,
// evaluated under the given policy.
func (h Header) Deleted(policy DeletedPolicy) bool {
	if policy == DeletedPolicyLiteral {
		return h.Flags == 0
	}
	return h.Flags&flagInUse == 0
}

// ParseHeader decodes the fixed MFT record header at the start of buf.
// buf must be at least 28 bytes (far short of RecordSize, but enough to
// read every fixed field used here except the record number, which is
// left zero when buf is shorter than 48 bytes).
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < 28 {
		return Header{}, fmt.Errorf("mftrec: buffer too small for header (%d bytes)", len(buf))
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.AttrsOffset = binary.LittleEndian.Uint16(buf[20:22])
	h.Flags = binary.LittleEndian.Uint16(buf[22:24])
	h.UsedSize = binary.LittleEndian.Uint32(buf[24:28])
	if len(buf) >= 48 {
		h.RecordNumber = binary.LittleEndian.Uint32(buf[44:48])
	}
	return h, nil
}

// AttributeHeader is the common header shared by resident and
// non-resident attributes.
type AttributeHeader struct {
	Type        uint32
	Length      uint32
	NonResident bool
	NameLength  uint8
	NameOffset  uint16
	Flags       uint16
	AttrID      uint16
}

// StandardInformation holds the decoded $STANDARD_INFORMATION fields
// this engine needs (recency filtering for the live tap).
type StandardInformation struct {
	CreateTime uint64
	ModifyTime uint64
}

// FileName holds the decoded $FILE_NAME fields this engine needs.
type FileName struct {
	ParentRef uint64
	Name      string // best-effort low-byte extraction
}

// VolumeName holds the decoded $VOLUME_NAME best-effort name.
type VolumeName struct {
	Name string
}

// DataAttr describes a $DATA attribute, resident or not.
type DataAttr struct {
	NonResident   bool
	ResidentBytes []byte // valid when !NonResident
	RunListBytes  []byte // valid when NonResident: raw run-list encoding
	RealSize      uint64
}

// Events accumulates the semantic results of walking one record's
// attribute chain, keeping the last-observed $FILE_NAME when more than
// one is present.
type Events struct {
	StandardInformation *StandardInformation
	FileName             *FileName
	VolumeName           *VolumeName
	Data                 *DataAttr
	UnknownTypesObserved int
	MalformedAttributes  int
}

// Walk decodes the attribute chain inside record (a RecordSize buffer),
// starting at header.AttrsOffset, terminating on the 0xFFFFFFFF sentinel,
// a malformed length, or reaching header.UsedSize — whichever comes
// first.
func Walk(record []byte, header Header) Events {
	var ev Events

	cursor := int(header.AttrsOffset)
	used := int(header.UsedSize)
	if used <= 0 || used > len(record) {
		used = len(record)
	}

	for cursor+8 < used {
		attrType := binary.LittleEndian.Uint32(record[cursor : cursor+4])
		if attrType == AttrEnd {
			break
		}

		fullLength := binary.LittleEndian.Uint32(record[cursor+4 : cursor+8])
		if fullLength < 16 || int(fullLength) > len(record)-cursor {
			ev.MalformedAttributes++
			break
		}

		attrBuf := record[cursor : cursor+int(fullLength)]
		nonResident := attrBuf[8] != 0

		switch attrType {
		case AttrStandardInformation:
			if si, ok := parseStandardInformation(attrBuf); ok {
				ev.StandardInformation = &si
			} else {
				ev.MalformedAttributes++
			}
		case AttrFileName:
			if !nonResident {
				if fn, ok := parseFileName(attrBuf); ok {
					ev.FileName = &fn // last observed wins; earlier is released
				} else {
					ev.MalformedAttributes++
				}
			}
		case AttrVolumeName:
			if !nonResident {
				ev.VolumeName = &VolumeName{Name: extractLowByteName(valueBytes(attrBuf))}
			}
		case AttrData:
			if data, ok := parseData(attrBuf, nonResident); ok {
				ev.Data = &data
			} else {
				ev.MalformedAttributes++
			}
		default:
			ev.UnknownTypesObserved++
		}

		cursor += int(fullLength)
	}

	return ev
}

// valueBytes returns the resident content bytes of a resident attribute.
func valueBytes(attr []byte) []byte {
	if len(attr) < 24 {
		return nil
	}
	valueLength := binary.LittleEndian.Uint32(attr[16:20])
	valueOffset := binary.LittleEndian.Uint16(attr[20:22])
	end := int(valueOffset) + int(valueLength)
	if end > len(attr) || int(valueOffset) > len(attr) {
		return nil
	}
	return attr[valueOffset:end]
}

func parseStandardInformation(attr []byte) (StandardInformation, bool) {
	v := valueBytes(attr)
	if len(v) < 16 {
		return StandardInformation{}, false
	}
	return StandardInformation{
		CreateTime: binary.LittleEndian.Uint64(v[0:8]),
		ModifyTime: binary.LittleEndian.Uint64(v[8:16]),
	}, true
}

func parseFileName(attr []byte) (FileName, bool) {
	v := valueBytes(attr)
	if len(v) < 66 {
		return FileName{}, false
	}
	parentRef := binary.LittleEndian.Uint64(v[0:8]) & 0x0000FFFFFFFFFFFF
	nameLen := int(v[64])
	nameBytesLen := nameLen * 2
	if 66+nameBytesLen > len(v) {
		return FileName{}, false
	}
	return FileName{
		ParentRef: parentRef,
		Name:      extractLowByteName(v[66 : 66+nameBytesLen]),
	}, true
}

func parseData(attr []byte, nonResident bool) (DataAttr, bool) {
	if nonResident {
		if len(attr) < 64 {
			return DataAttr{}, false
		}
		dataRunsOffset := binary.LittleEndian.Uint16(attr[32:34])
		realSize := binary.LittleEndian.Uint64(attr[48:56])
		if int(dataRunsOffset) > len(attr) {
			return DataAttr{}, false
		}
		return DataAttr{
			NonResident:  true,
			RunListBytes: attr[dataRunsOffset:],
			RealSize:     realSize,
		}, true
	}
	v := valueBytes(attr)
	return DataAttr{NonResident: false, ResidentBytes: v, RealSize: uint64(len(v))}, true
}

// extractLowByteName performs a best-effort low-byte extraction: a
// 16-bit little-endian name is reduced by keeping only bytes whose low
// octet falls in (0x14, 0x80), rather than decoding full UTF-16
// codepoints.
func extractLowByteName(nameUTF16LE []byte) string {
	out := make([]byte, 0, len(nameUTF16LE)/2)
	for _, b := range nameUTF16LE {
		if b > 0x14 && b < 0x80 {
			out = append(out, b)
		}
	}
	return string(out)
}
