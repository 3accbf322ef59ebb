// Command cabx reads a CSV entry manifest and writes one or more
// Microsoft Cabinet archives, honouring per-entry compression and flush
// directives.
package main

import (
	"flag"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/oc-soft/cabx/cabinet"
	"github.com/oc-soft/cabx/manifest"
	"github.com/oc-soft/cabx/placement"
	"github.com/oc-soft/cabx/report"
)

// reportFlag implements flag.Value and flag.boolFlag so -r/-report can be
// given either bare (report to standard output) or with a destination
// (-report=path.txt), per §6.1's "optional path" argument.
type reportFlag struct {
	enabled *bool
	dest    *string
}

func (r *reportFlag) String() string {
	if r.dest == nil {
		return ""
	}
	return *r.dest
}

func (r *reportFlag) Set(s string) error {
	*r.enabled = true
	if s == "true" {
		*r.dest = "-"
	} else {
		*r.dest = s
	}
	return nil
}

func (r *reportFlag) IsBoolFlag() bool { return true }

func main() {
	var (
		input            string
		output           string
		cabNameTemplate  string
		diskNameTemplate string
		maxCabinetStr    string
		folderThreshStr  string
		reportDest       string
		reportEnabled    bool
		reportCompress   bool
		showStatus       bool
		help             bool
	)

	flag.StringVar(&input, "i", "-", "manifest file, or - for standard input")
	flag.StringVar(&input, "input", "-", "manifest file, or - for standard input")
	flag.StringVar(&output, "o", ".", "output directory for cabinets")
	flag.StringVar(&output, "output", ".", "output directory for cabinets")
	flag.StringVar(&cabNameTemplate, "c", "data%d.cab", "cabinet file-name template, one %d for index")
	flag.StringVar(&cabNameTemplate, "cab-name", "data%d.cab", "cabinet file-name template, one %d for index")
	flag.StringVar(&diskNameTemplate, "d", "", "disk name template")
	flag.StringVar(&diskNameTemplate, "disk-name", "", "disk name template")
	flag.StringVar(&maxCabinetStr, "m", "", "maximum cabinet size, e.g. 1k, 2M (default unlimited)")
	flag.StringVar(&maxCabinetStr, "max-cabinet", "", "maximum cabinet size, e.g. 1k, 2M (default unlimited)")
	flag.StringVar(&folderThreshStr, "f", "", "folder-flush threshold, e.g. 1k, 2M (default unlimited)")
	flag.StringVar(&folderThreshStr, "folder-thresh", "", "folder-flush threshold, e.g. 1k, 2M (default unlimited)")
	rf := &reportFlag{enabled: &reportEnabled, dest: &reportDest}
	flag.Var(rf, "r", "emit placement report, default destination - when given without a path")
	flag.Var(rf, "report", "emit placement report, default destination - when given without a path")
	flag.BoolVar(&reportCompress, "report-compress", false, "also write a zstd-compressed copy of the report")
	flag.BoolVar(&showStatus, "s", false, "show progress lines on standard error")
	flag.BoolVar(&showStatus, "show-status", false, "show progress lines on standard error")
	flag.BoolVar(&help, "h", false, "print this help text and exit")
	flag.BoolVar(&help, "help", false, "print this help text and exit")
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	maxCabinet := uint32(cabinet.DefaultMaxSize)
	if maxCabinetStr != "" {
		v, err := parseSize(maxCabinetStr)
		if err != nil {
			log.Fatalf("cabx: %v", err)
		}
		maxCabinet = v
	}
	folderThresh := uint32(cabinet.DefaultMaxSize)
	if folderThreshStr != "" {
		v, err := parseSize(folderThreshStr)
		if err != nil {
			log.Fatalf("cabx: %v", err)
		}
		folderThresh = v
	}

	list, err := manifest.Load(input)
	if err != nil {
		log.Fatalf("cabx: %v", err)
	}

	setID := uint16(rand.New(rand.NewSource(time.Now().UnixNano())).Intn(0x10000))
	params, err := cabinet.NewParams(cabNameTemplate, diskNameTemplate, output, maxCabinet, folderThresh, setID)
	if err != nil {
		log.Fatalf("cabx: %v", err)
	}

	tracker := placement.New()

	var status io.Writer
	statusIsTerminal := false
	if showStatus {
		status = os.Stderr
		statusIsTerminal = term.IsTerminal(int(os.Stderr.Fd()))
	}

	writer := cabinet.NewWriter(params, tracker, list.SourceToName, status)
	driver := cabinet.NewDriver(writer, tracker)

	if err := driver.Generate(list.Directives()); err != nil {
		log.Fatalf("cabx: %v", err)
	}

	if reportEnabled {
		opts := report.Options{
			Destination:      reportDest,
			Compress:         reportCompress,
			StatusIsTerminal: statusIsTerminal,
		}
		if err := report.Write(list.Entries, tracker, opts); err != nil {
			log.Fatalf("cabx: %v", err)
		}
	}
}

