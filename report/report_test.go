package report

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/oc-soft/cabx/manifest"
	"github.com/oc-soft/cabx/placement"
)

func TestBuildReportOrdersByManifestSkipsUnplaced(t *testing.T) {
	entries := []manifest.Entry{
		{EntryName: "a.txt"},
		{EntryName: "b.txt"},
		{EntryName: "never-placed.txt"},
	}
	tr := placement.New()
	tr.NotePlaced("data0.cab", "a.txt", false)
	tr.NotePlaced("data1.cab", "b.txt", false)

	got := buildReport(entries, tr)
	want := "a.txt,data0.cab\nb.txt,data1.cab\n"
	if got != want {
		t.Errorf("buildReport = %q, want %q", got, want)
	}
}

func TestWriteToFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "report.csv")
	entries := []manifest.Entry{{EntryName: "a.txt"}}
	tr := placement.New()
	tr.NotePlaced("data0.cab", "a.txt", false)

	if err := Write(entries, tr, Options{Destination: dest}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(got) != "a.txt,data0.cab\n" {
		t.Errorf("report content = %q, want %q", got, "a.txt,data0.cab\n")
	}
}

func TestWriteZstdSidecar(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "report.csv")
	entries := []manifest.Entry{{EntryName: "a.txt"}}
	tr := placement.New()
	tr.NotePlaced("data0.cab", "a.txt", false)

	if err := Write(entries, tr, Options{Destination: dest, Compress: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(dest + ".zst")
	if err != nil {
		t.Fatalf("open sidecar: %v", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer zr.Close()

	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	if string(got) != "a.txt,data0.cab\n" {
		t.Errorf("decompressed sidecar = %q, want %q", got, "a.txt,data0.cab\n")
	}
}

func TestWriteStdoutSkipsSidecar(t *testing.T) {
	entries := []manifest.Entry{{EntryName: "a.txt"}}
	tr := placement.New()
	tr.NotePlaced("data0.cab", "a.txt", false)

	if err := Write(entries, tr, Options{Destination: "-", Compress: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat("-.zst"); !os.IsNotExist(err) {
		t.Fatal("Write created a literal '-.zst' sidecar for stdout destination")
	}
}
