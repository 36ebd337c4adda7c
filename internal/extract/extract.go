// Package extract recovers file content from a catalogued MFT entry: the
// resident path copies bytes already captured in the record, the
// non-resident path walks the run list and reads clusters from the
// source device directly (the catalogue only ever stores coordinates,
// never file content, for non-resident files).
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shubham030/ntfstap/internal/catalog"
	"github.com/shubham030/ntfstap/internal/diskio"
	"github.com/shubham030/ntfstap/internal/ntfserr"
	"github.com/shubham030/ntfstap/internal/runlist"
)

// SparseFillPolicy controls what a non-resident extraction writes for a
// sparse run.
type SparseFillPolicy int

const (
	// SparseZeroFill writes zero bytes for the sparse run's extent,
	// preserving the file's logical layout.
	SparseZeroFill SparseFillPolicy = iota
	// SparseSkip omits the sparse extent from the output file entirely,
	// shrinking it relative to the original logical size.
	SparseSkip
)

// Options bounds and configures an extraction.
type Options struct {
	// MaxExtractBytes rejects non-resident extractions whose total
	// decoded size would exceed it.
	MaxExtractBytes int64
	SparsePolicy    SparseFillPolicy
}

const (
	residentSubdir    = "Resident"
	nonResidentSubdir = "NonResident"
)

// Resident writes entry's already-captured resident bytes to
// <outRoot>/Resident/<name> and returns the path written.
func Resident(entry catalog.Entry, outRoot string) (string, error) {
	if !entry.Resident {
		return "", fmt.Errorf("extract: entry %q is not resident", entry.Name)
	}
	dir := filepath.Join(outRoot, residentSubdir)
	if err := requireDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitizeName(entry.Name))
	if err := os.WriteFile(path, entry.ResidentBytes, 0o644); err != nil {
		return "", fmt.Errorf("extract: writing resident file: %w", err)
	}
	return path, nil
}

// NonResident reads entry's clusters from dev (via its decoded run list)
// and writes them to <outRoot>/NonResident/<name>.
func NonResident(dev *diskio.Reader, entry catalog.Entry, partitionBase int64, bytesPerCluster int, outRoot string, opts Options) (string, error) {
	if entry.Resident {
		return "", fmt.Errorf("extract: entry %q is resident, not non-resident", entry.Name)
	}
	if len(entry.DataRuns) == 0 {
		return "", fmt.Errorf("extract: entry %q has no data runs", entry.Name)
	}

	var totalBytes int64
	for _, run := range entry.DataRuns {
		totalBytes += int64(run.Length) * int64(bytesPerCluster)
	}
	if opts.MaxExtractBytes > 0 && totalBytes > opts.MaxExtractBytes {
		return "", fmt.Errorf("extract: entry %q size %d exceeds MAX_EXTRACT_FSIZE %d", entry.Name, totalBytes, opts.MaxExtractBytes)
	}

	deviceSize := dev.Size()
	for _, run := range entry.DataRuns {
		if run.Sparse {
			continue
		}
		runStart := partitionBase + run.LCN*int64(bytesPerCluster)
		runEnd := runStart + int64(run.Length)*int64(bytesPerCluster)
		if runStart < 0 || runEnd > deviceSize {
			return "", fmt.Errorf("extract: entry %q run at LCN %d falls outside device bounds", entry.Name, run.LCN)
		}
	}

	dir := filepath.Join(outRoot, nonResidentSubdir)
	if err := requireDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitizeName(entry.Name))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("extract: creating output file: %w", err)
	}
	defer f.Close()

	if err := copyRuns(f, dev, entry.DataRuns, partitionBase, bytesPerCluster, opts.SparsePolicy); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func copyRuns(w io.Writer, dev *diskio.Reader, runs []runlist.Run, partitionBase int64, bytesPerCluster int, policy SparseFillPolicy) error {
	buf := make([]byte, 0)
	for _, run := range runs {
		runBytes := int64(run.Length) * int64(bytesPerCluster)

		if run.Sparse {
			if policy == SparseSkip {
				continue
			}
			if _, err := w.Write(make([]byte, runBytes)); err != nil {
				return fmt.Errorf("extract: writing sparse fill: %w", err)
			}
			continue
		}

		if int64(cap(buf)) < runBytes {
			buf = make([]byte, runBytes)
		}
		buf = buf[:runBytes]
		offset := partitionBase + run.LCN*int64(bytesPerCluster)
		if err := dev.ReadExact(buf, offset); err != nil {
			return fmt.Errorf("extract: reading run at LCN %d: %w", run.LCN, err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("extract: writing run data: %w", err)
		}
	}
	return nil
}

// requireDir verifies dir already exists. The engine never creates
// output directories; callers must.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return ntfserr.New(ntfserr.IO, "extract: output directory", err)
	}
	if !info.IsDir() {
		return ntfserr.New(ntfserr.IO, "extract: output directory", fmt.Errorf("%q is not a directory", dir))
	}
	return nil
}

func sanitizeName(name string) string {
	if name == "" {
		return "_"
	}
	return filepath.Base(name)
}
