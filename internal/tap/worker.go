package tap

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shubham030/ntfstap/internal/catalog"
	"github.com/shubham030/ntfstap/internal/diskio"
	"github.com/shubham030/ntfstap/internal/extract"
	"github.com/shubham030/ntfstap/internal/mftrec"
	"github.com/shubham030/ntfstap/internal/ntfstime"
	"github.com/shubham030/ntfstap/internal/runlist"
)

// idlePoll is how long the worker sleeps when the queue is empty before
// checking again.
const idlePoll = 10 * time.Second

const sectorSize = 512

// maxTapSectors bounds how large a single tap event's affected region may
// be. A frame whose Count is 0, odd, or exceeds this is not aligned to
// whole MFT-record-sized windows and is ignored.
const maxTapSectors = 32

// Worker is the tap's consumer: it drains frames, filters on recency,
// resolves the touched MFT record's name and data, and re-extracts it.
type Worker struct {
	Queue           *Queue
	Device          *diskio.Reader
	PartitionBase   int64
	BytesPerCluster int
	OutRoot         string
	MaxAge          time.Duration
	DeletedPolicy   mftrec.DeletedPolicy
	ExtractOpts     extract.Options
	Logger          *slog.Logger

	// IOLock, when set, guards every access this worker makes to Device
	// against concurrent CLI-initiated reads of the same handle. Callers
	// sharing a device across the tap and on-demand extraction should
	// set this to engine.Context.WithIOLock.
	IOLock func(func() error) error
}

// Run drains the queue until ctx is cancelled. A cancellation observed
// mid-extraction removes whatever partial output file was created,
// rather than leaving a truncated file behind.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, ok := w.Queue.Get()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idlePoll):
			}
			continue
		}

		if err := w.handleFrame(ctx, frame); err != nil {
			logger.Warn("tap: frame handling failed", "sector", frame.Sector, "err", err)
		}
	}
}

// handleFrame validates the frame's affected sector range, reads the
// whole region, and scans it window by window for MFT records: a tap
// event can span more than one record when a write touches several
// contiguous ones.
func (w *Worker) handleFrame(ctx context.Context, frame Frame) error {
	if frame.Count <= 0 || frame.Count%2 != 0 || int(frame.Count) > maxTapSectors {
		return nil // not aligned to whole record-sized windows; ignore
	}

	return w.withIOLock(func() error {
		totalBytes := int(frame.Count) * sectorSize
		buf := make([]byte, totalBytes)
		offset := w.PartitionBase + frame.Sector*sectorSize
		if err := w.Device.ReadExact(buf, offset); err != nil {
			return err
		}

		windows := totalBytes / mftrec.RecordSize
		for i := 0; i < windows; i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := w.handleRecord(ctx, buf[i*mftrec.RecordSize:(i+1)*mftrec.RecordSize]); err != nil {
				return err
			}
		}
		return nil
	})
}

// withIOLock runs fn under IOLock when the worker was given one,
// serializing device reads against any other holder of the same lock.
func (w *Worker) withIOLock(fn func() error) error {
	if w.IOLock == nil {
		return fn()
	}
	return w.IOLock(fn)
}

func (w *Worker) handleRecord(ctx context.Context, buf []byte) error {
	header, err := mftrec.ParseHeader(buf)
	if err != nil || !header.IsFileRecord() {
		return nil // not an MFT record at this window; ignore
	}
	if header.Deleted(w.DeletedPolicy) || header.IsDirectory() {
		return nil
	}

	events := mftrec.Walk(buf, header)
	if events.StandardInformation == nil || events.FileName == nil || events.Data == nil {
		return nil
	}
	if !ntfstime.IsRecent(events.StandardInformation.ModifyTime, time.Now(), w.MaxAge) {
		return nil
	}

	entry := catalog.Entry{
		Name:         events.FileName.Name,
		RecordNumber: header.RecordNumber,
	}

	var path string
	var extractErr error
	if events.Data.NonResident {
		runs, err := runlist.Decode(events.Data.RunListBytes)
		if err != nil {
			return err
		}
		entry.DataRuns = runs
		path, extractErr = extract.NonResident(w.Device, entry, w.PartitionBase, w.BytesPerCluster, w.OutRoot, w.ExtractOpts)
	} else {
		entry.Resident = true
		entry.ResidentBytes = events.Data.ResidentBytes
		path, extractErr = extract.Resident(entry, w.OutRoot)
	}

	if ctx.Err() != nil {
		if path != "" {
			os.Remove(path)
		}
		return ctx.Err()
	}
	return extractErr
}
