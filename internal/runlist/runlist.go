// Package runlist decodes and encodes NTFS data runs: the variable-length
// encoding of a non-resident attribute's cluster extents. Each entry is a
// header byte (low nibble = length-field size, high nibble = offset-field
// size) followed by an unsigned length and a signed, sign-extended,
// delta-encoded offset. The codec accumulates deltas into absolute LCNs
// while decoding so callers never see raw deltas.
package runlist

import "fmt"

// Run is one decoded (length, absolute-LCN) pair. Sparse is true when the
// on-disk run carries no cluster backing (offset-field size was zero);
// in that case LCN is meaningless and callers must zero-fill or skip per
// their own documented policy.
type Run struct {
	Length uint64
	LCN    int64
	Sparse bool
}

// Decode parses a run list from data, stopping at a zero header byte or
// when data is exhausted. It never allocates more than one Run per loop
// iteration and returns an error only when the encoding itself is
// malformed (a field size over 8 bytes, field sizes declared larger than
// fit in the remaining data, or a zero-length run).
func Decode(data []byte) ([]Run, error) {
	var runs []Run
	var currentLCN int64

	i := 0
	for i < len(data) {
		header := data[i]
		if header == 0 {
			break
		}

		lenSize := int(header & 0x0F)
		offSize := int(header >> 4)
		if lenSize > 8 || offSize > 8 {
			return nil, fmt.Errorf("runlist: header byte 0x%02x declares field size > 8", header)
		}

		if i+1+lenSize+offSize > len(data) {
			return nil, fmt.Errorf("runlist: entry at %d exceeds data of length %d", i, len(data))
		}

		var length uint64
		for j := 0; j < lenSize; j++ {
			length |= uint64(data[i+1+j]) << (8 * j)
		}
		if length == 0 {
			return nil, fmt.Errorf("runlist: zero-length run at offset %d", i)
		}

		sparse := offSize == 0
		var lcn int64
		if !sparse {
			var offset int64
			for j := 0; j < offSize; j++ {
				offset |= int64(data[i+1+lenSize+j]) << (8 * j)
			}
			if data[i+lenSize+offSize]&0x80 != 0 {
				for j := offSize; j < 8; j++ {
					offset |= int64(0xFF) << (8 * j)
				}
			}
			currentLCN += offset
			lcn = currentLCN
		}

		runs = append(runs, Run{Length: length, LCN: lcn, Sparse: sparse})
		i += 1 + lenSize + offSize
	}

	return runs, nil
}

// Encode is the inverse of Decode: for every valid run list L,
// Decode(Encode(L)) is semantically equal to L.
// Each run's offset is re-derived as the delta from the absolute LCN of
// the most recent non-sparse run (0 for the first one): sparse runs don't
// participate in the LCN cursor.
func Encode(runs []Run) []byte {
	var out []byte
	var currentLCN int64

	for _, r := range runs {
		lenBytes := minBytesUnsigned(r.Length)
		var offBytes int
		var delta int64
		if !r.Sparse {
			delta = r.LCN - currentLCN
			offBytes = minBytesSigned(delta)
			if offBytes == 0 {
				offBytes = 1 // a zero-size offset field would decode as sparse
			}
			currentLCN = r.LCN
		}

		header := byte(lenBytes) | byte(offBytes<<4)
		out = append(out, header)
		for j := 0; j < lenBytes; j++ {
			out = append(out, byte(r.Length>>(8*j)))
		}
		for j := 0; j < offBytes; j++ {
			out = append(out, byte(delta>>(8*j)))
		}
	}
	out = append(out, 0)
	return out
}

func minBytesUnsigned(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 8
	}
	if n == 0 {
		n = 1
	}
	return n
}

func minBytesSigned(v int64) int {
	if v == 0 {
		return 0
	}
	// Number of bytes needed to represent v in two's complement such that
	// the sign bit of the top byte matches the sign of v.
	n := 1
	for {
		lo := int64(-1) << uint(n*8-1)
		hi := -lo - 1
		if v >= lo && v <= hi {
			return n
		}
		n++
	}
}
