package archive

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ArchiveHeader_RoundTrips_Through_Encode_Decode(t *testing.T) {
	t.Parallel()

	want := ArchiveHeader{Version: FormatVersion, FileCount: 7}

	var buf bytes.Buffer
	require.NoError(t, WriteArchiveHeader(&buf, want))
	require.Equal(t, archiveHeaderSize, buf.Len())

	got, err := ReadArchiveHeader(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("archive header mismatch (-want +got):\n%s", diff)
	}
}

func Test_ReadArchiveHeader_Returns_BadMagic_For_Wrong_Magic(t *testing.T) {
	t.Parallel()

	buf := make([]byte, archiveHeaderSize)
	copy(buf, "ZZZZ")

	_, err := ReadArchiveHeader(bytes.NewReader(buf))
	assert.ErrorIs(t, err, BadMagic)
}

func Test_ReadArchiveHeader_Returns_UnsupportedVersion_For_Unknown_Version(t *testing.T) {
	t.Parallel()

	hdr := encodeArchiveHeader(ArchiveHeader{Version: FormatVersion})
	hdr[offArchiveVersion] = 0xFF
	hdr[offArchiveVersion+1] = 0xFF

	_, err := ReadArchiveHeader(bytes.NewReader(hdr))
	assert.ErrorIs(t, err, UnsupportedVersion)
}

func Test_ReadArchiveHeader_Returns_UnexpectedEOF_For_Truncated_Input(t *testing.T) {
	t.Parallel()

	full := encodeArchiveHeader(ArchiveHeader{Version: FormatVersion})

	_, err := ReadArchiveHeader(bytes.NewReader(full[:10]))
	assert.ErrorIs(t, err, UnexpectedEOF)
}

func Test_FileHeader_RoundTrips_Through_Encode_Decode(t *testing.T) {
	t.Parallel()

	want := FileHeader{
		Name:              "dir/example.txt",
		OrigSize:          1024,
		CompSize:          512,
		Crc32Uncompressed: 0x8CDD35EF,
		Crc32Compressed:   0xDEADBEEF,
		Compressed:        true,
	}

	var buf bytes.Buffer
	buf.Write(encodeFileHeaderPrefix(want))
	buf.WriteString(want.Name)

	got, err := ReadFileHeader(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("file header mismatch (-want +got):\n%s", diff)
	}
}

func Test_FileHeader_Name_At_Max_Length_Encodes_Without_Error(t *testing.T) {
	t.Parallel()

	name := make([]byte, maxNameLength)
	for i := range name {
		name[i] = 'a'
	}

	hdr := FileHeader{Name: string(name)}
	prefix := encodeFileHeaderPrefix(hdr)

	got := uint16FromLE(prefix[offFileNameLength : offFileNameLength+2])
	assert.Equal(t, maxNameLength, int(got))
}

func uint16FromLE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func Test_ReadFileHeader_Returns_Corrupted_For_Zero_Length_Name(t *testing.T) {
	t.Parallel()

	prefix := encodeFileHeaderPrefix(FileHeader{Name: "x"})
	prefix[offFileNameLength] = 0
	prefix[offFileNameLength+1] = 0

	_, err := ReadFileHeader(bytes.NewReader(prefix))
	assert.ErrorIs(t, err, Corrupted)
}

func Test_FileHeader_RoundTrips_Sizes_Past_The_4GiB_Boundary(t *testing.T) {
	t.Parallel()

	const justOver4GiB = uint64(1)<<32 + 1

	want := FileHeader{
		Name:              "huge.bin",
		OrigSize:          justOver4GiB,
		CompSize:          justOver4GiB - 1,
		Crc32Uncompressed: 0x12345678,
		Crc32Compressed:   0x9abcdef0,
		Compressed:        true,
	}

	var buf bytes.Buffer
	buf.Write(encodeFileHeaderPrefix(want))
	buf.WriteString(want.Name)

	got, err := ReadFileHeader(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("file header mismatch (-want +got):\n%s", diff)
	}

	assert.Greater(t, got.OrigSize, uint64(math.MaxUint32))
}
