// Package mbr decodes the MBR partition table: up to four fixed 16-byte
// entries starting at byte 0x1BE, used to discover NTFS partitions (type
// 0x07) before any NTFS-specific parsing begins.
package mbr

import (
	"encoding/binary"
	"fmt"
)

const (
	// EntryOffset is the byte offset of the first partition entry within
	// the 512-byte MBR sector.
	EntryOffset = 0x1BE
	// EntrySize is the fixed size of one partition table entry.
	EntrySize = 16
	// MaxEntries is the number of primary partition slots in an MBR.
	MaxEntries = 4

	// TypeNTFS is the partition type byte NTFS volumes use.
	TypeNTFS = 0x07
	// BootableIndicator is the boot-indicator value meaning "active".
	// 0x08 shows up as a check in some older snapshots of this logic;
	// that is a typo, since 0x80 is the only correct value and
	// bootability isn't load-bearing for extraction anyway.
	BootableIndicator = 0x80
)

// Entry is one decoded 16-byte partition table entry.
type Entry struct {
	BootIndicator   byte
	StartHead       byte
	StartSector     byte
	StartCylinder   byte
	Type            byte
	EndHead         byte
	EndSector       byte
	EndCylinder     byte
	RelativeSector  uint32
	TotalSectors    uint32
}

// Bootable reports whether this entry's boot indicator marks it active.
func (e Entry) Bootable() bool { return e.BootIndicator == BootableIndicator }

// IsNTFS reports whether this entry's type byte is the NTFS partition type.
func (e Entry) IsNTFS() bool { return e.Type == TypeNTFS }

// Occupied reports whether this entry describes a real partition. The
// data model's invariant is that a nonzero sector count implies the slot
// is in use.
func (e Entry) Occupied() bool { return e.TotalSectors > 0 }

// BaseByteOffset is the partition's starting byte offset on the device,
// assuming the fixed 512-byte sector size used throughout this engine.
func (e Entry) BaseByteOffset() int64 {
	return int64(e.RelativeSector) * 512
}

// DecodeEntry decodes one 16-byte partition entry from buf at the given
// offset within buf.
func DecodeEntry(buf []byte, offset int) (Entry, error) {
	if offset+EntrySize > len(buf) {
		return Entry{}, fmt.Errorf("mbr: entry at %d exceeds buffer of length %d", offset, len(buf))
	}
	b := buf[offset : offset+EntrySize]
	return Entry{
		BootIndicator:  b[0],
		StartHead:      b[1],
		StartSector:    b[2],
		StartCylinder:  b[3],
		Type:           b[4],
		EndHead:        b[5],
		EndSector:      b[6],
		EndCylinder:    b[7],
		RelativeSector: binary.LittleEndian.Uint32(b[8:12]),
		TotalSectors:   binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// ReadEntries decodes all MaxEntries partition entries from a 512-byte
// (or larger) MBR sector buffer.
func ReadEntries(sector []byte) ([]Entry, error) {
	entries := make([]Entry, 0, MaxEntries)
	for i := 0; i < MaxEntries; i++ {
		e, err := DecodeEntry(sector, EntryOffset+i*EntrySize)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// NTFSPartitions filters entries down to occupied NTFS (type 0x07) slots.
func NTFSPartitions(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Occupied() && e.IsNTFS() {
			out = append(out, e)
		}
	}
	return out
}
