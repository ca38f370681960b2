package memory_map

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLinuxMapsLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want MemoryMapItem
	}{
		{
			name: "file backed text",
			line: "00400000-0040b000 r-xp 00000000 fd:01 1048602                            /usr/bin/cat",
			want: MemoryMapItem{
				Address:  0x400000,
				Size:     0xb000,
				Perms:    Permissions{Read: true, Execute: true},
				Device:   Device{Major: 0xfd, Minor: 0x01},
				Inode:    1048602,
				Filename: "/usr/bin/cat",
			},
		},
		{
			name: "anonymous without pathname",
			line: "7f3b2c000000-7f3b2c021000 rw-p 00000000 00:00 0 ",
			want: MemoryMapItem{
				Address: 0x7f3b2c000000,
				Size:    0x21000,
				Perms:   Permissions{Read: true, Write: true},
			},
		},
		{
			name: "pseudo name",
			line: "01b8a000-01bab000 rw-p 00000000 00:00 0                                  [heap]",
			want: MemoryMapItem{
				Address:  0x1b8a000,
				Size:     0x21000,
				Perms:    Permissions{Read: true, Write: true},
				Filename: "[heap]",
			},
		},
		{
			name: "shared mapping with offset",
			line: "7f3b2d5e0000-7f3b2d5e2000 rw-s 00012000 00:05 4096                       /dev/shm/ring",
			want: MemoryMapItem{
				Address:  0x7f3b2d5e0000,
				Size:     0x2000,
				Perms:    Permissions{Read: true, Write: true, Shared: true},
				Offset:   0x12000,
				Device:   Device{Major: 0x00, Minor: 0x05},
				Inode:    4096,
				Filename: "/dev/shm/ring",
			},
		},
		{
			name: "pathname with spaces and deleted suffix",
			line: "7f3b2d600000-7f3b2d601000 r--p 00001000 103:02 77 /home/user/My Files/lib x.so (deleted)",
			want: MemoryMapItem{
				Address:  0x7f3b2d600000,
				Size:     0x1000,
				Perms:    Permissions{Read: true},
				Offset:   0x1000,
				Device:   Device{Major: 0x103, Minor: 0x02},
				Inode:    77,
				Filename: "/home/user/My Files/lib x.so (deleted)",
			},
		},
		{
			name: "trailing blanks after pathname",
			line: "00400000-0040b000 r-xp 00000000 fd:01 1048602 /usr/bin/cat   \t",
			want: MemoryMapItem{
				Address:  0x400000,
				Size:     0xb000,
				Perms:    Permissions{Read: true, Execute: true},
				Device:   Device{Major: 0xfd, Minor: 0x01},
				Inode:    1048602,
				Filename: "/usr/bin/cat",
			},
		},
		{
			name: "vsyscall at top of address space",
			line: "ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0                  [vsyscall]",
			want: MemoryMapItem{
				Address:  0xffffffffff600000,
				Size:     0x1000,
				Perms:    Permissions{Execute: true},
				Filename: "[vsyscall]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLinuxMapsLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLinuxMapsLineMalformed(t *testing.T) {
	lines := map[string]string{
		"too few fields":    "00400000-0040b000 r-xp 00000000 fd:01",
		"no range dash":     "00400000 r-xp 00000000 fd:01 1 /bin/cat",
		"bad start":         "0040zz00-0040b000 r-xp 00000000 fd:01 1 /bin/cat",
		"empty range":       "0040b000-0040b000 r-xp 00000000 fd:01 1 /bin/cat",
		"inverted range":    "0040c000-0040b000 r-xp 00000000 fd:01 1 /bin/cat",
		"short perms":       "00400000-0040b000 r-x 00000000 fd:01 1 /bin/cat",
		"unknown perm":      "00400000-0040b000 r-qp 00000000 fd:01 1 /bin/cat",
		"bad offset":        "00400000-0040b000 r-xp 0000g000 fd:01 1 /bin/cat",
		"device without :":  "00400000-0040b000 r-xp 00000000 fd01 1 /bin/cat",
		"hex inode":         "00400000-0040b000 r-xp 00000000 fd:01 1f /bin/cat",
		"truncated address": "00400000-",
	}

	for name, line := range lines {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLinuxMapsLine(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedData)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, line, perr.Text)
		})
	}
}

func TestParseFreeBSDMapLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want MemoryMapItem
	}{
		{
			name: "vnode text",
			line: "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1",
			want: MemoryMapItem{
				Address:  0x200000,
				Size:     0x1000,
				Perms:    Permissions{Read: true, Execute: true},
				Filename: "/bin/cat",
			},
		},
		{
			name: "anonymous default object",
			line: "0x800a00000 0x800c00000 12 12 0xfffff80012345000 rw- 1 0 0x3000 NCOW NNC default - CH 1001",
			want: MemoryMapItem{
				Address: 0x800a00000,
				Size:    0x200000,
				Perms:   Permissions{Read: true, Write: true},
			},
		},
		{
			name: "shared vnode with spaces in path",
			line: "0x801000000 0x801002000 2 0 0xfffff80001111000 rw- 3 0 0x1000 NCOW NNC vnode /tmp/my file.db NCH -1",
			want: MemoryMapItem{
				Address:  0x801000000,
				Size:     0x2000,
				Perms:    Permissions{Read: true, Write: true, Shared: true},
				Filename: "/tmp/my file.db",
			},
		},
		{
			name: "null object",
			line: "0x7fffdfffe000 0x7fffdffff000 0 0 0 --- 0 0 0x0 NCOW NNC none - NCH -1",
			want: MemoryMapItem{
				Address: 0x7fffdfffe000,
				Size:    0x1000,
			},
		},
		{
			name: "dead object",
			line: "0x801200000 0x801201000 0 0 0xfffff80002222000 r-- 0 0 0x0 NCOW NNC dead - NCH -1",
			want: MemoryMapItem{
				Address: 0x801200000,
				Size:    0x1000,
				Perms:   Permissions{Read: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFreeBSDMapLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFreeBSDMapLineMalformed(t *testing.T) {
	lines := map[string]string{
		"linux line":       "00400000-0040b000 r-xp 00000000 fd:01 1048602 /usr/bin/cat",
		"missing 0x":       "200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1",
		"bad resident":     "0x200000 0x201000 x 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1",
		"bad prot":         "0x200000 0x201000 1 0 0xfffff80003e2a000 rx 2 1 0x1000 COW NC vnode /bin/cat NCH -1",
		"bad cow":          "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 MOO NC vnode /bin/cat NCH -1",
		"bad needs copy":   "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW XX vnode /bin/cat NCH -1",
		"bad charged":      "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat YES -1",
		"bad uid":          "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH root",
		"inverted range":   "0x201000 0x200000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1",
		"truncated fields": "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode",
	}

	for name, line := range lines {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFreeBSDMapLine(line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedData)
		})
	}
}

const linuxListing = `55d0c8a00000-55d0c8a02000 r--p 00000000 fd:01 1048602                    /usr/bin/cat
55d0c8a02000-55d0c8a07000 r-xp 00002000 fd:01 1048602                    /usr/bin/cat
55d0c8a07000-55d0c8a0a000 r--p 00007000 fd:01 1048602                    /usr/bin/cat
55d0ca1e3000-55d0ca204000 rw-p 00000000 00:00 0                          [heap]
7ffd3c9a1000-7ffd3c9c2000 rw-p 00000000 00:00 0                          [stack]
7ffd3c9f4000-7ffd3c9f8000 r--p 00000000 00:00 0                          [vvar]
7ffd3c9f8000-7ffd3c9fa000 r-xp 00000000 00:00 0                          [vdso]
`

func TestParseMapsLinux(t *testing.T) {
	memoryMap, err := ParseMaps([]byte(linuxListing), DialectLinux)
	require.NoError(t, err)
	require.Len(t, memoryMap, 7)

	assert.Equal(t, "/usr/bin/cat", memoryMap[1].Filename)
	assert.True(t, memoryMap[1].IsExecutable())
	assert.Equal(t, uint64(0x2000), memoryMap[1].Offset)
	assert.Equal(t, "[stack]", memoryMap[4].Filename)
	assert.NoError(t, Validate(memoryMap))
}

func TestParseMapsEmpty(t *testing.T) {
	for _, input := range []string{"", "\n", "\n\n  \n"} {
		memoryMap, err := ParseMaps([]byte(input), DialectLinux)
		require.NoError(t, err)
		assert.NotNil(t, memoryMap)
		assert.Empty(t, memoryMap)
	}
}

func TestParseMapsFailsWholeListing(t *testing.T) {
	listing := linuxListing + "garbage line\n7fff00000000-7fff00001000 r--p 00000000 00:00 0\n"

	memoryMap, err := ParseMaps([]byte(listing), DialectLinux)
	require.Error(t, err)
	assert.Nil(t, memoryMap)
	assert.ErrorIs(t, err, ErrMalformedData)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 8, perr.Line)
	assert.Equal(t, "garbage line", perr.Text)
}

func TestParseMapsRejectsOverlap(t *testing.T) {
	listing := "00400000-00402000 r--p 00000000 00:00 0\n00401000-00403000 r--p 00000000 00:00 0\n"

	_, err := ParseMaps([]byte(listing), DialectLinux)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedData))
}

func TestParseMapsFreeBSD(t *testing.T) {
	listing := "0x200000 0x201000 1 0 0xfffff80003e2a000 r-x 2 1 0x1000 COW NC vnode /bin/cat NCH -1\n" +
		"0x800a00000 0x800c00000 12 12 0xfffff80012345000 rw- 1 0 0x3000 NCOW NNC default - CH 1001\n"

	memoryMap, err := ParseMaps([]byte(listing), DialectFreeBSD)
	require.NoError(t, err)
	require.Len(t, memoryMap, 2)
	assert.Equal(t, "/bin/cat", memoryMap[0].Filename)
	assert.False(t, memoryMap[1].HasFilename())
}

func TestParseMapsUnknownDialect(t *testing.T) {
	memoryMap, err := ParseMaps([]byte(linuxListing), Dialect(9))
	require.Error(t, err)
	assert.Nil(t, memoryMap)
	assert.ErrorIs(t, err, ErrUnsupported)
}
