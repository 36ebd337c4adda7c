package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shubham030/ntfstap/internal/catalog"
	"github.com/shubham030/ntfstap/internal/diskio"
	"github.com/shubham030/ntfstap/internal/runlist"
)

func TestResidentWritesFile(t *testing.T) {
	entry := catalog.Entry{
		Name:          "note.txt",
		Resident:      true,
		ResidentBytes: []byte("hello resident world"),
	}
	outRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(outRoot, residentSubdir), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path, err := Resident(entry, outRoot)
	if err != nil {
		t.Fatalf("Resident failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "hello resident world" {
		t.Errorf("content = %q", got)
	}
	if filepath.Base(filepath.Dir(path)) != residentSubdir {
		t.Errorf("expected to land under %q, got %s", residentSubdir, path)
	}
}

func TestResidentRejectsNonResidentEntry(t *testing.T) {
	entry := catalog.Entry{Name: "x", Resident: false}
	if _, err := Resident(entry, t.TempDir()); err == nil {
		t.Error("expected error for non-resident entry")
	}
}

func TestResidentFailsWhenDirectoryMissing(t *testing.T) {
	entry := catalog.Entry{Name: "note.txt", Resident: true, ResidentBytes: []byte("x")}
	if _, err := Resident(entry, t.TempDir()); err == nil {
		t.Error("expected error: engine does not create output directories")
	}
}

func openDeviceWithContent(t *testing.T, content []byte) *diskio.Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.img")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	dev, err := diskio.Open(path)
	if err != nil {
		t.Fatalf("diskio.Open failed: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestNonResidentReadsRunsFromDevice(t *testing.T) {
	const bytesPerCluster = 512
	device := make([]byte, 2048)
	copy(device[1024:1536], []byte("cluster-two-data"))

	dev := openDeviceWithContent(t, device)

	entry := catalog.Entry{
		Name:     "bigfile.bin",
		Resident: false,
		DataRuns: []runlist.Run{{Length: 1, LCN: 2}},
	}

	outRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(outRoot, nonResidentSubdir), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path, err := NonResident(dev, entry, 0, bytesPerCluster, outRoot, Options{SparsePolicy: SparseZeroFill})
	if err != nil {
		t.Fatalf("NonResident failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != bytesPerCluster {
		t.Fatalf("extracted length = %d, want %d", len(got), bytesPerCluster)
	}
	if string(got[0:16]) != "cluster-two-data" {
		t.Errorf("unexpected extracted content: %q", got[0:16])
	}
}

func TestNonResidentRejectsOverMaxSize(t *testing.T) {
	dev := openDeviceWithContent(t, make([]byte, 4096))
	entry := catalog.Entry{
		Name:     "huge.bin",
		DataRuns: []runlist.Run{{Length: 4, LCN: 0}},
	}
	_, err := NonResident(dev, entry, 0, 512, t.TempDir(), Options{MaxExtractBytes: 1024})
	if err == nil {
		t.Error("expected MAX_EXTRACT_FSIZE rejection")
	}
}

func TestNonResidentRejectsOutOfBoundsRun(t *testing.T) {
	dev := openDeviceWithContent(t, make([]byte, 1024))
	entry := catalog.Entry{
		Name:     "oob.bin",
		DataRuns: []runlist.Run{{Length: 10, LCN: 100}},
	}
	_, err := NonResident(dev, entry, 0, 512, t.TempDir(), Options{})
	if err == nil {
		t.Error("expected out-of-bounds run rejection")
	}
}

func TestNonResidentSparseZeroFill(t *testing.T) {
	dev := openDeviceWithContent(t, make([]byte, 1024))
	entry := catalog.Entry{
		Name:     "sparse.bin",
		DataRuns: []runlist.Run{{Length: 2, Sparse: true}},
	}
	outRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(outRoot, nonResidentSubdir), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path, err := NonResident(dev, entry, 0, 512, outRoot, Options{SparsePolicy: SparseZeroFill})
	if err != nil {
		t.Fatalf("NonResident failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(got) != 1024 {
		t.Errorf("expected 1024 zero-filled bytes, got %d", len(got))
	}
}
