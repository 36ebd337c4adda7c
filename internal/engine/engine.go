// Package engine assembles the decoder packages into one long-lived
// context shared by the CLI and the live tap, replacing a global device
// handle and global cursor state with an explicit, passed-around
// struct.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shubham030/ntfstap/internal/bootsect"
	"github.com/shubham030/ntfstap/internal/catalog"
	"github.com/shubham030/ntfstap/internal/diskio"
	"github.com/shubham030/ntfstap/internal/mbr"
	"github.com/shubham030/ntfstap/internal/mftrec"
	"github.com/shubham030/ntfstap/internal/ntfserr"
	"github.com/shubham030/ntfstap/internal/tap"
)

// Context is the engine's shared state: one device handle guarded by a
// mutex (the harvester, the CLI's on-demand reads, and the tap worker
// all read from the same *os.File), the active partition's geometry,
// where extracted files and the local MFT image land, and the
// catalogue once built.
type Context struct {
	Device  *diskio.Reader
	ioMu    sync.Mutex
	Logger  *slog.Logger

	PartitionBase     int64
	BytesPerCluster   int
	SectorsPerCluster int
	MFTByteOffset     int64

	OutputRoot   string
	MFTImagePath string

	DeletedPolicy mftrec.DeletedPolicy

	Catalogue *catalog.Catalogue
	TapQueue  *tap.Queue
	TapState  *tap.StateMachine
}

// Open opens devicePath and selects the first NTFS partition found in
// its MBR, decoding that partition's boot sector geometry. Pass
// partitionIndex < 0 to pick the first NTFS partition automatically,
// or a specific index from mbr.NTFSPartitions to target one partition
// on a multi-partition device.
func Open(devicePath string, partitionIndex int, outputRoot string, deletedPolicy mftrec.DeletedPolicy, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	device, err := diskio.Open(devicePath)
	if err != nil {
		return nil, ntfserr.New(ntfserr.Configuration, "engine.Open", err)
	}

	sectorBuf := make([]byte, 512)
	if err := device.ReadExact(sectorBuf, 0); err != nil {
		device.Close()
		return nil, ntfserr.New(ntfserr.IO, "engine.Open: reading MBR sector", err)
	}
	entries, err := mbr.ReadEntries(sectorBuf)
	if err != nil {
		device.Close()
		return nil, ntfserr.New(ntfserr.Malformed, "engine.Open: decoding MBR", err)
	}
	ntfsEntries := mbr.NTFSPartitions(entries)
	if len(ntfsEntries) == 0 {
		device.Close()
		return nil, ntfserr.New(ntfserr.Configuration, "engine.Open", ntfserr.ErrNoNTFSPartition)
	}

	chosen := ntfsEntries[0]
	if partitionIndex >= 0 {
		if partitionIndex >= len(ntfsEntries) {
			device.Close()
			return nil, ntfserr.New(ntfserr.Configuration, "engine.Open", fmt.Errorf("partition index %d out of range (%d NTFS partitions found)", partitionIndex, len(ntfsEntries)))
		}
		chosen = ntfsEntries[partitionIndex]
	}

	partitionBase := chosen.BaseByteOffset()
	bootBuf := make([]byte, 512)
	if err := device.ReadExact(bootBuf, partitionBase); err != nil {
		device.Close()
		return nil, ntfserr.New(ntfserr.IO, "engine.Open: reading boot sector", err)
	}
	bs, err := bootsect.Parse(bootBuf)
	if err != nil {
		device.Close()
		return nil, ntfserr.New(ntfserr.Malformed, "engine.Open: decoding boot sector", err)
	}

	return &Context{
		Device:            device,
		Logger:            logger,
		PartitionBase:     partitionBase,
		BytesPerCluster:   bs.BytesPerCluster,
		SectorsPerCluster: int(bs.SectorsPerCluster),
		MFTByteOffset:     bs.MFTByteOffset,
		OutputRoot:        outputRoot,
		DeletedPolicy:     deletedPolicy,
		TapState:          tap.NewStateMachine(),
	}, nil
}

// WithIOLock runs fn while holding the device I/O mutex, serializing
// the CLI's on-demand extraction reads and the tap worker's reads
// against the single shared *os.File. The startup harvest does not take
// the lock; it runs before the tap can be started.
func (c *Context) WithIOLock(fn func() error) error {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()
	return fn()
}

// Close releases the device handle.
func (c *Context) Close() error {
	return c.Device.Close()
}
