package memory_map

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the procfs line grammar.
type Dialect int

const (
	// DialectLinux is /proc/<pid>/maps on Linux and Android:
	//   00400000-0040b000 r-xp 00000000 fd:01 1048602    /usr/bin/cat
	DialectLinux Dialect = iota

	// DialectFreeBSD is /proc/<pid>/map on FreeBSD:
	//   0x200000 0x201000 1 0 0xfffff80003e2a000 r-- 2 1 0x1000 COW NC vnode /bin/cat NCH -1
	DialectFreeBSD
)

func (d Dialect) String() string {
	switch d {
	case DialectLinux:
		return "linux"
	case DialectFreeBSD:
		return "freebsd"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

var (
	errFieldCount   = errors.New("unexpected field count")
	errEmptyRange   = errors.New("end address not above start address")
	errUnknownToken = errors.New("unexpected token")
)

// ParseMaps parses a whole procfs listing. Empty lines are skipped; any other line
// that does not parse fails the whole listing.
func ParseMaps(data []byte, dialect Dialect) ([]MemoryMapItem, error) {
	var parseLine func(string) (MemoryMapItem, error)
	switch dialect {
	case DialectLinux:
		parseLine = ParseLinuxMapsLine
	case DialectFreeBSD:
		parseLine = ParseFreeBSDMapLine
	default:
		return nil, fmt.Errorf("%w: dialect %s", ErrUnsupported, dialect)
	}

	memoryMap := []MemoryMapItem{}
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		item, err := parseLine(string(line))
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Line = i + 1
			}
			return nil, err
		}
		memoryMap = append(memoryMap, item)
	}

	sortMemoryMap(memoryMap)
	if err := Validate(memoryMap); err != nil {
		return nil, err
	}

	return memoryMap, nil
}

// ParseLinuxMapsLine parses a single line of /proc/<pid>/maps.
// The pathname is everything after the inode with leading blanks removed, so it may
// contain spaces or end in " (deleted)".
func ParseLinuxMapsLine(line string) (MemoryMapItem, error) {
	fail := func(err error) (MemoryMapItem, error) {
		return MemoryMapItem{}, &ParseError{Text: line, Err: err}
	}

	var fields [5]string
	rest := line
	for i := range fields {
		var ok bool
		fields[i], rest, ok = cutField(rest)
		if !ok {
			return fail(fmt.Errorf("%w: got %d of 5 fields", errFieldCount, i))
		}
	}

	// Parse address range (e.g., "00400000-0040b000")
	startStr, endStr, ok := strings.Cut(fields[0], "-")
	if !ok {
		return fail(fmt.Errorf("address range %q: missing '-'", fields[0]))
	}
	start, err := strconv.ParseUint(startStr, 16, 64)
	if err != nil {
		return fail(fmt.Errorf("start address: %w", err))
	}
	end, err := strconv.ParseUint(endStr, 16, 64)
	if err != nil {
		return fail(fmt.Errorf("end address: %w", err))
	}
	if end <= start {
		return fail(fmt.Errorf("%w: %s", errEmptyRange, fields[0]))
	}

	perms, err := ParsePermissions(fields[1])
	if err != nil {
		return fail(err)
	}

	offset, err := strconv.ParseUint(fields[2], 16, 64)
	if err != nil {
		return fail(fmt.Errorf("offset: %w", err))
	}

	dev, err := parseDevice(fields[3])
	if err != nil {
		return fail(err)
	}

	inode, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return fail(fmt.Errorf("inode: %w", err))
	}

	return MemoryMapItem{
		Address:  start,
		Size:     end - start,
		Perms:    perms,
		Offset:   offset,
		Device:   dev,
		Inode:    inode,
		Filename: strings.Trim(rest, " \t"),
	}, nil
}

// ParseFreeBSDMapLine parses a single line of FreeBSD's /proc/<pid>/map.
// FreeBSD does not report offset, device or inode there; they are left zero.
func ParseFreeBSDMapLine(line string) (MemoryMapItem, error) {
	fail := func(err error) (MemoryMapItem, error) {
		return MemoryMapItem{}, &ParseError{Text: line, Err: err}
	}

	fields := strings.Fields(line)
	// 12 leading fields, a path of one or more fields, then charged and uid
	if len(fields) < 15 {
		return fail(fmt.Errorf("%w: got %d, want at least 15", errFieldCount, len(fields)))
	}
	head, tail := fields[:12], fields[len(fields)-2:]
	path := strings.Join(fields[12:len(fields)-2], " ")

	start, err := parseHex0x(head[0])
	if err != nil {
		return fail(fmt.Errorf("start address: %w", err))
	}
	end, err := parseHex0x(head[1])
	if err != nil {
		return fail(fmt.Errorf("end address: %w", err))
	}
	if end <= start {
		return fail(fmt.Errorf("%w: %s %s", errEmptyRange, head[0], head[1]))
	}

	for _, f := range []struct {
		idx  int
		name string
	}{{2, "resident"}, {3, "private resident"}, {6, "ref count"}, {7, "shadow count"}} {
		if _, err := strconv.ParseInt(head[f.idx], 10, 64); err != nil {
			return fail(fmt.Errorf("%s: %w", f.name, err))
		}
	}
	// the kernel prints a NULL object as a bare "0"
	if _, err := strconv.ParseUint(strings.TrimPrefix(head[4], "0x"), 16, 64); err != nil {
		return fail(fmt.Errorf("object: %w", err))
	}
	if _, err := parseHex0x(head[8]); err != nil {
		return fail(fmt.Errorf("flags: %w", err))
	}

	prot := head[5]
	if len(prot) != 3 {
		return fail(fmt.Errorf("protection %q: expected 3 characters", prot))
	}

	var cow bool
	switch head[9] {
	case "COW":
		cow = true
	case "NCOW":
	default:
		return fail(fmt.Errorf("%w: copy-on-write flag %q", errUnknownToken, head[9]))
	}
	if head[10] != "NC" && head[10] != "NNC" {
		return fail(fmt.Errorf("%w: needs-copy flag %q", errUnknownToken, head[10]))
	}

	kind := head[11]
	if tail[0] != "CH" && tail[0] != "NCH" {
		return fail(fmt.Errorf("%w: charged flag %q", errUnknownToken, tail[0]))
	}
	if _, err := strconv.ParseInt(tail[1], 10, 64); err != nil {
		return fail(fmt.Errorf("uid: %w", err))
	}

	// only file or device objects can be shared
	shared := !cow
	switch kind {
	case "default", "swap", "none", "dead":
		shared = false
	}
	sharing := "p"
	if shared {
		sharing = "s"
	}
	perms, err := ParsePermissions(prot + sharing)
	if err != nil {
		return fail(err)
	}

	if path == "-" {
		path = ""
	}

	return MemoryMapItem{
		Address:  start,
		Size:     end - start,
		Perms:    perms,
		Filename: path,
	}, nil
}

// cutField returns the first whitespace separated field of s and what follows it.
func cutField(s string) (field, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", false
	}
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:], true
	}
	return s, "", true
}

func parseDevice(s string) (Device, error) {
	majorStr, minorStr, ok := strings.Cut(s, ":")
	if !ok {
		return Device{}, fmt.Errorf("device %q: missing ':'", s)
	}
	major, err := strconv.ParseUint(majorStr, 16, 32)
	if err != nil {
		return Device{}, fmt.Errorf("device major: %w", err)
	}
	minor, err := strconv.ParseUint(minorStr, 16, 32)
	if err != nil {
		return Device{}, fmt.Errorf("device minor: %w", err)
	}
	return Device{Major: uint32(major), Minor: uint32(minor)}, nil
}

func parseHex0x(s string) (uint64, error) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok {
		return 0, fmt.Errorf("%q: missing 0x prefix", s)
	}
	return strconv.ParseUint(digits, 16, 64)
}
