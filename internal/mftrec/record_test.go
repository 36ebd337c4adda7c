package mftrec

import (
	"encoding/binary"
	"testing"
)

// buildRecord assembles a minimal 1024-byte MFT record with the given
// in-use flags and a caller-supplied attribute chain (already encoded),
// terminated by the 0xFFFFFFFF sentinel.
func buildRecord(flags uint16, attrChain []byte) []byte {
	buf := make([]byte, RecordSize)
	copy(buf[0:4], "FILE")
	const attrsOffset = 56
	binary.LittleEndian.PutUint16(buf[20:22], attrsOffset)
	binary.LittleEndian.PutUint16(buf[22:24], flags)

	copy(buf[attrsOffset:], attrChain)
	end := attrsOffset + len(attrChain)
	binary.LittleEndian.PutUint32(buf[end:end+4], AttrEnd)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(end+4))
	return buf
}

func encodeResidentAttr(attrType uint32, content []byte) []byte {
	const headerLen = 24
	valueOffset := headerLen
	length := valueOffset + len(content)
	// pad to 8-byte alignment like real NTFS records do
	for length%8 != 0 {
		length++
	}
	buf := make([]byte, length)
	binary.LittleEndian.PutUint32(buf[0:4], attrType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(length))
	buf[8] = 0 // resident
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(content)))
	binary.LittleEndian.PutUint16(buf[20:22], uint16(valueOffset))
	copy(buf[valueOffset:], content)
	return buf
}

func encodeFileNameContent(name string) []byte {
	content := make([]byte, 66+len(name)*2)
	content[64] = byte(len(name))
	for i, r := range name {
		binary.LittleEndian.PutUint16(content[66+i*2:], uint16(r))
	}
	return content
}

func TestWalkCountsKEvents(t *testing.T) {
	var chain []byte
	chain = append(chain, encodeResidentAttr(AttrStandardInformation, make([]byte, 48))...)
	chain = append(chain, encodeResidentAttr(AttrFileName, encodeFileNameContent("hi.txt"))...)
	chain = append(chain, encodeResidentAttr(AttrData, []byte("HELLO"))...)

	record := buildRecord(flagInUse, chain)
	header, err := ParseHeader(record)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	ev := Walk(record, header)
	if ev.StandardInformation == nil {
		t.Error("expected StandardInformation to be observed")
	}
	if ev.FileName == nil || ev.FileName.Name != "hi.txt" {
		t.Errorf("expected FileName 'hi.txt', got %+v", ev.FileName)
	}
	if ev.Data == nil || string(ev.Data.ResidentBytes) != "HELLO" {
		t.Errorf("expected resident DATA 'HELLO', got %+v", ev.Data)
	}
	if ev.MalformedAttributes != 0 {
		t.Errorf("expected no malformed attributes, got %d", ev.MalformedAttributes)
	}
}

func TestLastFileNameWins(t *testing.T) {
	var chain []byte
	chain = append(chain, encodeResidentAttr(AttrFileName, encodeFileNameContent("dos~1"))...)
	chain = append(chain, encodeResidentAttr(AttrFileName, encodeFileNameContent("longname.txt"))...)

	record := buildRecord(flagInUse, chain)
	header, _ := ParseHeader(record)
	ev := Walk(record, header)
	if ev.FileName == nil || ev.FileName.Name != "longname.txt" {
		t.Errorf("expected last FILE_NAME to win, got %+v", ev.FileName)
	}
}

func TestMalformedAttributeStopsWalk(t *testing.T) {
	good := encodeResidentAttr(AttrFileName, encodeFileNameContent("a.txt"))
	record := buildRecord(flagInUse, good)
	// corrupt the length of the first (only) attribute to exceed the record.
	binary.LittleEndian.PutUint32(record[56+4:56+8], uint32(RecordSize+100))

	header, _ := ParseHeader(record)
	ev := Walk(record, header)
	if ev.FileName != nil {
		t.Error("expected no FileName event after malformed attribute abort")
	}
	if ev.MalformedAttributes != 1 {
		t.Errorf("expected 1 malformed attribute event, got %d", ev.MalformedAttributes)
	}
}

func TestDeletedPolicyLiteralVsCorrected(t *testing.T) {
	record := buildRecord(0, nil)
	header, _ := ParseHeader(record)

	if !header.Deleted(DeletedPolicyLiteral) {
		t.Error("flags==0 must be deleted under the literal policy")
	}
	if !header.Deleted(DeletedPolicyCorrected) {
		t.Error("flags==0 must also read as deleted under the corrected policy (bit 0 clear)")
	}

	inUseDir := buildRecord(flagInUse|flagDirectory, nil)
	header2, _ := ParseHeader(inUseDir)
	if header2.Deleted(DeletedPolicyLiteral) {
		t.Error("literal policy: nonzero flags (in-use+dir) must not read as deleted")
	}
	if header2.Deleted(DeletedPolicyCorrected) {
		t.Error("corrected policy: in-use bit set means not deleted")
	}
}

func TestExtractLowByteName(t *testing.T) {
	// "ab" as UTF-16LE: 0x61 0x00 0x62 0x00 -> 0x61 0x62 (0x00 is not > 0x14)
	got := extractLowByteName([]byte{0x61, 0x00, 0x62, 0x00})
	if got != "ab" {
		t.Errorf("got %q, want %q", got, "ab")
	}
}
