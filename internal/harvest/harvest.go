// Package harvest reads an NTFS partition's own $MFT record, follows its
// $DATA run list, and streams the full MFT (every record, in on-disk
// order) into a local flat image file. Each non-sparse run is preceded by
// a synthetic FRAG marker carrying the run's absolute device byte offset
// (sparse runs are zero-filled or skipped without a marker),
// so a later sweep (internal/catalog) can recover absolute coordinates
// for every record without re-reading the device.
package harvest

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shubham030/ntfstap/internal/bootsect"
	"github.com/shubham030/ntfstap/internal/diskio"
	"github.com/shubham030/ntfstap/internal/mftrec"
	"github.com/shubham030/ntfstap/internal/runlist"
)

// fragMarkerSignature and the RecordSize-shaped layout must match what
// internal/catalog expects: "FRAG" + 8-byte absolute offset, zero-padded
// to mftrec.RecordSize, terminated by a 0xFFFFFFFF sentinel in the last
// four bytes (so a naive record-header scan also rejects it cleanly).
const fragMarkerSignature = "FRAG"

// SparseFillPolicy controls what Harvest writes into the local image for
// sparse runs in the $MFT's own run list. Real-world $MFT data is rarely
// sparse, but the decoder must still pick a documented behavior.
type SparseFillPolicy int

const (
	// SparseZeroFill writes bytesPerCluster*Length zero bytes for a
	// sparse run, preserving byte alignment in the local image.
	SparseZeroFill SparseFillPolicy = iota
	// SparseSkip omits sparse runs from the local image entirely.
	SparseSkip
)

// Stats summarizes one harvest run.
type Stats struct {
	RunsWritten     int
	ClustersWritten int64
	BytesWritten    int64
	SparseRuns      int
}

// fragMarker builds one mftrec.RecordSize-sized marker block.
func fragMarker(absoluteByteOffset int64) []byte {
	buf := make([]byte, mftrec.RecordSize)
	copy(buf[0:4], fragMarkerSignature)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(absoluteByteOffset))
	binary.LittleEndian.PutUint32(buf[mftrec.RecordSize-4:], 0xFFFFFFFF)
	return buf
}

// Harvest locates the $MFT record at partitionBase+bs.MFTByteOffset,
// decodes its $DATA run list, and writes the full MFT image to out.
func Harvest(dev *diskio.Reader, partitionBase int64, bs bootsect.BootSector, out io.Writer, policy SparseFillPolicy) (Stats, error) {
	var stats Stats

	mftRecordBuf := make([]byte, mftrec.RecordSize)
	if err := dev.ReadExact(mftRecordBuf, partitionBase+bs.MFTByteOffset); err != nil {
		return stats, fmt.Errorf("harvest: reading $MFT record: %w", err)
	}

	header, err := mftrec.ParseHeader(mftRecordBuf)
	if err != nil {
		return stats, fmt.Errorf("harvest: parsing $MFT record header: %w", err)
	}
	if !header.IsFileRecord() {
		return stats, fmt.Errorf("harvest: $MFT record has no FILE signature")
	}

	events := mftrec.Walk(mftRecordBuf, header)
	if events.Data == nil {
		return stats, fmt.Errorf("harvest: $MFT record has no $DATA attribute")
	}
	if !events.Data.NonResident {
		return stats, fmt.Errorf("harvest: $MFT $DATA is resident, expected non-resident")
	}

	runs, err := runlist.Decode(events.Data.RunListBytes)
	if err != nil {
		return stats, fmt.Errorf("harvest: decoding $MFT run list: %w", err)
	}

	readBuf := make([]byte, 0)
	for _, run := range runs {
		runBytes := int64(run.Length) * int64(bs.BytesPerCluster)

		if run.Sparse {
			stats.SparseRuns++
			if policy == SparseSkip {
				continue
			}
			if _, err := out.Write(make([]byte, runBytes)); err != nil {
				return stats, fmt.Errorf("harvest: writing sparse fill: %w", err)
			}
			stats.BytesWritten += runBytes
			stats.ClustersWritten += int64(run.Length)
			continue
		}

		absoluteOffset := partitionBase + run.LCN*int64(bs.BytesPerCluster)
		if _, err := out.Write(fragMarker(absoluteOffset)); err != nil {
			return stats, fmt.Errorf("harvest: writing fragment marker: %w", err)
		}

		if int64(cap(readBuf)) < runBytes {
			readBuf = make([]byte, runBytes)
		}
		readBuf = readBuf[:runBytes]
		if err := dev.ReadExact(readBuf, absoluteOffset); err != nil {
			return stats, fmt.Errorf("harvest: reading run at cluster %d: %w", run.LCN, err)
		}
		if _, err := out.Write(readBuf); err != nil {
			return stats, fmt.Errorf("harvest: writing run data: %w", err)
		}

		stats.RunsWritten++
		stats.BytesWritten += runBytes
		stats.ClustersWritten += int64(run.Length)
	}

	return stats, nil
}
