// Package diskio provides read-only access to a raw block device or disk
// image: absolute/relative seeking and exact reads, with an observable
// current-offset used by the MFT harvester to stamp fragment markers.
package diskio

import (
	"fmt"
	"io"
	"os"

	"github.com/shubham030/ntfstap/internal/ntfserr"
)

// SectorSize is the fixed NTFS sector size assumed throughout the engine.
const SectorSize = 512

// Reader is a read-only handle on a raw device or image file. It tracks
// its own current offset so callers (notably the harvester) can recover
// "where did this read come from" without threading the value separately.
type Reader struct {
	file   *os.File
	size   int64
	offset int64
}

// Open opens path read-only and determines its size, falling back to an
// end-seek for block devices that report zero from Stat.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ntfserr.New(ntfserr.Configuration, "open device", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ntfserr.New(ntfserr.Configuration, "stat device", err)
	}

	size := stat.Size()
	if size == 0 {
		size, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return nil, ntfserr.New(ntfserr.Configuration, "determine device size", err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, ntfserr.New(ntfserr.Configuration, "rewind device", err)
		}
	}

	return &Reader{file: file, size: size}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.file.Close() }

// Size returns the device's total byte length.
func (r *Reader) Size() int64 { return r.size }

// Offset returns the position most recently established by SeekAbs,
// SeekRel, ReadExact, or ReadAtCurrent. ReadAt does not change it.
func (r *Reader) Offset() int64 { return r.offset }

// SeekAbs moves the current offset to an absolute byte position.
func (r *Reader) SeekAbs(offset int64) error {
	if offset < 0 || offset > r.size {
		return ntfserr.New(ntfserr.IO, "seek", fmt.Errorf("invalid offset %d", offset))
	}
	r.offset = offset
	return nil
}

// SeekRel moves the current offset by a relative delta.
func (r *Reader) SeekRel(delta int64) error {
	return r.SeekAbs(r.offset + delta)
}

// ReadExact reads exactly len(buf) bytes starting at offset, without
// disturbing the reader's notion of "current offset" used for fragment
// marker bookkeeping beyond recording where this read landed.
func (r *Reader) ReadExact(buf []byte, offset int64) error {
	n, err := r.file.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return ntfserr.New(ntfserr.IO, fmt.Sprintf("read at offset %d", offset), err)
	}
	r.offset = offset + int64(n)
	return nil
}

// ReadAt implements io.ReaderAt directly against the underlying file,
// for callers that want io.ReaderAt semantics without offset bookkeeping.
func (r *Reader) ReadAt(buf []byte, offset int64) (int, error) {
	return r.file.ReadAt(buf, offset)
}

// ReadAtCurrent reads len(buf) bytes starting at the reader's current
// offset and advances it, mirroring the harvester's sequential stream-out
// of each data run.
func (r *Reader) ReadAtCurrent(buf []byte) error {
	return r.ReadExact(buf, r.offset)
}
