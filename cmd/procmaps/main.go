package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"procmaps/process"
	"procmaps/process/memory_map"
)

const (
	exitOK         = 0
	exitError      = 1
	exitNotMatched = 2
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "procmaps"))

type options struct {
	pid           int
	name          string
	addr          string
	json          bool
	human         bool
	showAnonymous bool
}

func main() {
	config, err := ParseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}

	var opts options
	flag.IntVar(&opts.pid, "pid", 0, "Process ID to enumerate")
	flag.StringVar(&opts.name, "name", "", "Process name to enumerate, lowest PID wins")
	flag.StringVar(&opts.addr, "addr", "", "Print only the region containing this hex address")
	flag.BoolVar(&opts.json, "json", config.JSON, "Emit JSON instead of a table")
	flag.BoolVar(&opts.human, "human", config.Human, "Print human readable sizes")
	flag.BoolVar(&opts.showAnonymous, "anon", config.ShowAnonymous, "Include regions without a backing file")
	flag.Parse()

	os.Exit(run(opts, os.Stdout, os.Stderr))
}

func run(opts options, stdout, stderr io.Writer) int {
	if (opts.pid == 0) == (opts.name == "") {
		fmt.Fprintln(stderr, "Error: exactly one of --pid or --name is required")
		flag.Usage()
		return exitError
	}

	pid := process.ProcessID(opts.pid)
	if opts.name != "" {
		found, err := process.FindProcess(opts.name)
		if err != nil {
			fmt.Fprintf(stderr, "Error finding process %q: %v\n", opts.name, err)
			return exitError
		}
		pid = found
		log.Debugln("resolved", opts.name, "to pid", pid)
	}

	snapshot, err := process.TakeSnapshot(pid)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading memory map of process %d: %v\n", pid, err)
		if errors.Is(err, memory_map.ErrAccessDenied) {
			fmt.Fprintln(stderr, "Hint: reading another process's memory map usually needs elevated privileges")
		}
		return exitError
	}

	regions := snapshot.MemoryMap
	if opts.addr != "" {
		addr, err := process.ParseAddress(opts.addr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}

		region := snapshot.RegionFor(addr)
		if region == nil {
			fmt.Fprintf(stderr, "%s is not mapped in process %d\n", addr.ToString(), pid)
			return exitNotMatched
		}
		regions = []memory_map.MemoryMapItem{*region}
	} else if !opts.showAnonymous {
		regions = fileBacked(regions)
	}

	if opts.json {
		snapshot.MemoryMap = regions
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snapshot); err != nil {
			fmt.Fprintf(stderr, "Error encoding JSON: %v\n", err)
			return exitError
		}
		return exitOK
	}

	printTable(stdout, regions, opts.human)
	return exitOK
}

func fileBacked(regions []memory_map.MemoryMapItem) []memory_map.MemoryMapItem {
	filtered := make([]memory_map.MemoryMapItem, 0, len(regions))
	for _, item := range regions {
		if item.HasFilename() {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func printTable(w io.Writer, regions []memory_map.MemoryMapItem, human bool) {
	fmt.Fprintf(w, "%-33s %-5s %-8s %-5s %-10s %10s %s\n", "RANGE", "PERMS", "OFFSET", "DEV", "INODE", "SIZE", "PATH")
	for _, item := range regions {
		size := fmt.Sprintf("%x", item.Size)
		if human {
			size = item.HumanSize()
		}
		fmt.Fprintf(w, "%016x-%016x %-5s %08x %-5s %-10d %10s %s\n",
			item.Address, item.End(), item.Perms, item.Offset, item.Device, item.Inode, size, item.Filename)
	}
}
