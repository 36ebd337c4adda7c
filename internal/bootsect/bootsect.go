// Package bootsect decodes the 512-byte NTFS boot sector: bytes per
// sector, sectors per cluster, total sectors, and the MFT/MFT-mirror
// starting cluster numbers, deriving the bytes-per-cluster and MFT byte
// offset invariants the rest of the engine depends on.
package bootsect

import (
	"encoding/binary"
	"fmt"

	"github.com/shubham030/ntfstap/internal/ntfserr"
)

// Size is the fixed length of an NTFS boot sector.
const Size = 512

// BootSector is the decoded subset of boot sector fields this engine uses.
type BootSector struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	TotalSectors      int64
	MFTCluster        int64
	MFTMirrCluster    int64
	// ClustersPerMFTRecord is the raw signed byte: positive is a cluster
	// count, negative means record size = 2^|value| bytes.
	ClustersPerMFTRecord int8

	// BytesPerCluster and MFTRecordSize and MFTByteOffset are derived so
	// callers never recompute the boot sector's defining invariants.
	BytesPerCluster int
	MFTRecordSize   int
	MFTByteOffset   int64
}

// Parse decodes a 512-byte boot sector buffer, verifying the "NTFS"
// signature at offset 3 first.
func Parse(buf []byte) (BootSector, error) {
	if len(buf) < Size {
		return BootSector{}, fmt.Errorf("bootsect: buffer too small (%d bytes, need %d)", len(buf), Size)
	}
	if string(buf[3:7]) != "NTFS" {
		return BootSector{}, ntfserr.ErrNotNTFS
	}

	bs := BootSector{
		BytesPerSector:       binary.LittleEndian.Uint16(buf[11:13]),
		SectorsPerCluster:    buf[13],
		TotalSectors:         int64(binary.LittleEndian.Uint64(buf[40:48])),
		MFTCluster:           int64(binary.LittleEndian.Uint64(buf[48:56])),
		MFTMirrCluster:       int64(binary.LittleEndian.Uint64(buf[56:64])),
		ClustersPerMFTRecord: int8(buf[64]),
	}

	bs.BytesPerCluster = int(bs.BytesPerSector) * int(bs.SectorsPerCluster)

	if bs.ClustersPerMFTRecord < 0 {
		bs.MFTRecordSize = 1 << uint(-bs.ClustersPerMFTRecord)
	} else {
		bs.MFTRecordSize = int(bs.ClustersPerMFTRecord) * bs.BytesPerCluster
	}

	bs.MFTByteOffset = bs.MFTCluster * int64(bs.BytesPerCluster)

	return bs, nil
}
