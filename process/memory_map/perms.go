package memory_map

import (
	"fmt"
)

// Permissions of a mapping. A mapping that is not Shared is private (copy-on-write).
type Permissions struct {
	Read    bool `json:"read"`
	Write   bool `json:"write"`
	Execute bool `json:"execute"`
	Shared  bool `json:"shared"`
}

// String renders the permissions the way /proc/<pid>/maps does, e.g. "r-xp"
func (p Permissions) String() string {
	b := []byte("---p")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	if p.Shared {
		b[3] = 's'
	}
	return string(b)
}

// ParsePermissions parses a 4 character procfs permission string such as "rw-p".
func ParsePermissions(perms string) (Permissions, error) {
	var p Permissions
	if len(perms) != 4 {
		return p, fmt.Errorf("permissions %q: expected 4 characters", perms)
	}

	for i, want := range []byte("rwx") {
		switch perms[i] {
		case want:
			switch i {
			case 0:
				p.Read = true
			case 1:
				p.Write = true
			case 2:
				p.Execute = true
			}
		case '-':
		default:
			return p, fmt.Errorf("permissions %q: unexpected %q at position %d", perms, perms[i], i)
		}
	}

	switch perms[3] {
	case 's':
		p.Shared = true
	case 'p':
	default:
		return p, fmt.Errorf("permissions %q: unexpected sharing flag %q", perms, perms[3])
	}

	return p, nil
}

// Device identifies the storage device backing a mapping. The encoding is
// platform specific; the zero value means no device information is available.
type Device struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
}

func (d Device) String() string {
	return fmt.Sprintf("%02x:%02x", d.Major, d.Minor)
}

func (d Device) IsZero() bool {
	return d.Major == 0 && d.Minor == 0
}

// Windows page protection and region type constants (winnt.h)
const (
	PAGE_NOACCESS          = 0x01
	PAGE_READONLY          = 0x02
	PAGE_READWRITE         = 0x04
	PAGE_WRITECOPY         = 0x08
	PAGE_EXECUTE           = 0x10
	PAGE_EXECUTE_READ      = 0x20
	PAGE_EXECUTE_READWRITE = 0x40
	PAGE_EXECUTE_WRITECOPY = 0x80
	PAGE_GUARD             = 0x100

	MEM_FREE    = 0x10000
	MEM_PRIVATE = 0x20000
	MEM_MAPPED  = 0x40000
	MEM_IMAGE   = 0x1000000
)

// windowsPermissions translates a PAGE_* protection and MEM_* region type.
// Modifier bits such as PAGE_GUARD are ignored.
func windowsPermissions(protect, memType uint32) Permissions {
	var p Permissions
	base := protect & 0xff
	switch base {
	case PAGE_EXECUTE:
		p.Execute = true
	case PAGE_EXECUTE_READ, PAGE_EXECUTE_WRITECOPY:
		p.Execute = true
		p.Read = true
	case PAGE_EXECUTE_READWRITE:
		p.Execute = true
		p.Read = true
		p.Write = true
	case PAGE_READONLY, PAGE_WRITECOPY:
		p.Read = true
	case PAGE_READWRITE:
		p.Read = true
		p.Write = true
	}

	copyOnWrite := base == PAGE_WRITECOPY || base == PAGE_EXECUTE_WRITECOPY
	p.Shared = memType == MEM_MAPPED && !copyOnWrite
	return p
}

// mach VM_PROT_* bits and vm_region share modes (mach/vm_region.h)
const (
	vmProtRead    = 0x1
	vmProtWrite   = 0x2
	vmProtExecute = 0x4

	smShared        = 4 // SM_SHARED
	smTrueShared    = 5 // SM_TRUESHARED
	smSharedAliased = 7 // SM_SHARED_ALIASED
)

func darwinPermissions(protection, shareMode int) Permissions {
	return Permissions{
		Read:    protection&vmProtRead != 0,
		Write:   protection&vmProtWrite != 0,
		Execute: protection&vmProtExecute != 0,
		Shared:  shareMode == smShared || shareMode == smTrueShared || shareMode == smSharedAliased,
	}
}
