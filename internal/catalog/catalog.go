// Package catalog sweeps a local MFT image (produced by the harvester)
// record-by-record, tracking the harvester's fragment markers to recover
// absolute on-disk coordinates, and builds a flat, duplicate-permitting
// file catalogue indexed by record number, cluster offset, and name.
package catalog

import (
	"encoding/binary"
	"io"

	"github.com/shubham030/ntfstap/internal/mftrec"
	"github.com/shubham030/ntfstap/internal/runlist"
)

const (
	fragMarkerSignature = "FRAG"
	blockSize            = mftrec.RecordSize
	sectorSize           = 512
)

// Entry is one catalogued file: its name, where its MFT record sits on
// the source device, and its size. Duplicates are permitted — multiple
// $FILE_NAME attributes or multiple records can yield multiple entries
// for the same underlying file.
type Entry struct {
	Name                    string
	SectorOffsetOfRecord    int64
	ClusterOffsetOfRecord   int64
	SizeBytes               uint32
	RecordNumber            uint32
	DataRuns                []runlist.Run
	Resident                bool
	ResidentBytes           []byte
}

// Stats holds the summary counters a catalogue build reports.
type Stats struct {
	Files               int
	Directories         int
	Deleted             int
	Other               int
	BadAttributeEvents  int
	FragmentMarkers     int
	FileNameAttributes  int
}

// Catalogue is the built, read-only-after-build result: the flat entry
// list plus three lookup indexes.
type Catalogue struct {
	Entries []Entry
	Stats   Stats

	byRecordNumber map[uint32][]int
	byName         map[string][]int
	byClusterOff   map[int64][]int
}

// ByRecordNumber returns every entry with the given MFT record number.
func (c *Catalogue) ByRecordNumber(n uint32) []Entry {
	return c.indexed(c.byRecordNumber[n])
}

// ByName returns every entry with the given catalogued name.
func (c *Catalogue) ByName(name string) []Entry {
	return c.indexed(c.byName[name])
}

// ByClusterOffset returns every entry whose record lives in the given cluster.
func (c *Catalogue) ByClusterOffset(off int64) []Entry {
	return c.indexed(c.byClusterOff[off])
}

func (c *Catalogue) indexed(idx []int) []Entry {
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.Entries[i])
	}
	return out
}

// Build sweeps the local MFT image read from r (read from the start, in
// blockSize-sized blocks) and builds the catalogue. bytesPerCluster and
// sectorsPerCluster come from the NTFS boot sector of the partition the
// image was harvested from. deletedPolicy selects which in-use-flag
// reading classifies a record as deleted.
func Build(r io.Reader, bytesPerCluster int, sectorsPerCluster int, deletedPolicy mftrec.DeletedPolicy) (*Catalogue, error) {
	cat := &Catalogue{
		byRecordNumber: make(map[uint32][]int),
		byName:         make(map[string][]int),
		byClusterOff:   make(map[int64][]int),
	}

	var (
		cursorAbsByte int64
		relativeIndex int64
	)

	buf := make([]byte, blockSize)
	for {
		_, err := io.ReadFull(r, buf)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if string(buf[0:4]) == fragMarkerSignature {
			cursorAbsByte = int64(binary.LittleEndian.Uint64(buf[4:12]))
			relativeIndex = 0
			cat.Stats.FragmentMarkers++
			continue
		}

		header, err := mftrec.ParseHeader(buf)
		if err != nil || !header.IsFileRecord() {
			cat.Stats.Other++
			relativeIndex++
			continue
		}

		ev := mftrec.Walk(buf, header)
		cat.Stats.BadAttributeEvents += ev.MalformedAttributes
		if ev.FileName != nil {
			cat.Stats.FileNameAttributes++
		}

		sectorOffset := cursorAbsByte/sectorSize + relativeIndex*(blockSize/sectorSize)
		relativeIndex++

		switch {
		case header.Deleted(deletedPolicy):
			cat.Stats.Deleted++
		case header.IsDirectory():
			cat.Stats.Directories++
		case ev.FileName == nil || ev.Data == nil:
			cat.Stats.Other++
		default:
			cat.Stats.Files++
			entry := Entry{
				Name:                  ev.FileName.Name,
				SectorOffsetOfRecord:  sectorOffset,
				ClusterOffsetOfRecord: clusterAlign(sectorOffset, sectorsPerCluster),
				RecordNumber:          header.RecordNumber,
			}
			if ev.Data.NonResident {
				runs, err := runlist.Decode(ev.Data.RunListBytes)
				if err == nil {
					entry.DataRuns = runs
					var total uint64
					for _, run := range runs {
						total += run.Length
					}
					entry.SizeBytes = uint32(total * uint64(bytesPerCluster))
				} else {
					cat.Stats.BadAttributeEvents++
				}
			} else {
				entry.Resident = true
				entry.ResidentBytes = ev.Data.ResidentBytes
				entry.SizeBytes = uint32(len(ev.Data.ResidentBytes))
			}

			idx := len(cat.Entries)
			cat.Entries = append(cat.Entries, entry)
			cat.byRecordNumber[entry.RecordNumber] = append(cat.byRecordNumber[entry.RecordNumber], idx)
			cat.byName[entry.Name] = append(cat.byName[entry.Name], idx)
			cat.byClusterOff[entry.ClusterOffsetOfRecord] = append(cat.byClusterOff[entry.ClusterOffsetOfRecord], idx)
		}
	}

	return cat, nil
}

// clusterAlign rounds sectorOffset down to the enclosing cluster
// boundary, per the catalogue invariant: cluster-offset <= sector-offset
// and (sector-offset - cluster-offset) < sectors-per-cluster.
func clusterAlign(sectorOffset int64, sectorsPerCluster int) int64 {
	if sectorsPerCluster <= 0 {
		return sectorOffset
	}
	spc := int64(sectorsPerCluster)
	return sectorOffset - (sectorOffset % spc)
}
