package archive

import (
	"bytes"
	"encoding/binary"
	"io"

	afs "github.com/kbulgrien/arch/internal/fs"
)

// Archive header layout: 32 bytes, little-endian.
//
//	offset  size  field
//	0       4     magic       "ARCH"
//	4       2     version     uint16
//	6       4     fileCount   uint32
//	10      22    reserved    zero-filled
const (
	archiveHeaderSize = 32

	offArchiveMagic     = 0
	offArchiveVersion   = 4
	offArchiveFileCount = 6
	offArchiveReserved  = 10

	archiveMagicSize    = 4
	archiveReservedSize = 22
)

// archiveMagic is the fixed 4-byte identifier every archive starts with.
var archiveMagic = [archiveMagicSize]byte{'A', 'R', 'C', 'H'}

// FormatVersion is the only archive format version this codec writes and
// reads.
const FormatVersion uint16 = 1

// ArchiveHeader is the decoded form of the 32-byte archive header.
type ArchiveHeader struct {
	Version   uint16
	FileCount uint32
}

// encodeArchiveHeader renders h into a fresh 32-byte buffer.
func encodeArchiveHeader(h ArchiveHeader) []byte {
	buf := make([]byte, archiveHeaderSize)
	copy(buf[offArchiveMagic:offArchiveMagic+archiveMagicSize], archiveMagic[:])
	binary.LittleEndian.PutUint16(buf[offArchiveVersion:], h.Version)
	binary.LittleEndian.PutUint32(buf[offArchiveFileCount:], h.FileCount)
	// buf[offArchiveReserved:] is already zero from make().

	return buf
}

// decodeArchiveHeader parses a 32-byte buffer into an ArchiveHeader. It
// fails with [BadMagic] if the magic bytes don't match and
// [UnsupportedVersion] if the version field isn't [FormatVersion].
func decodeArchiveHeader(buf []byte) (ArchiveHeader, error) {
	if len(buf) != archiveHeaderSize {
		return ArchiveHeader{}, newErr(Internal, "decodeArchiveHeader", nil)
	}

	if !bytes.Equal(buf[offArchiveMagic:offArchiveMagic+archiveMagicSize], archiveMagic[:]) {
		return ArchiveHeader{}, newErr(BadMagic, "decodeArchiveHeader", nil)
	}

	version := binary.LittleEndian.Uint16(buf[offArchiveVersion:])
	if version != FormatVersion {
		return ArchiveHeader{}, newErr(UnsupportedVersion, "decodeArchiveHeader", nil)
	}

	return ArchiveHeader{
		Version:   version,
		FileCount: binary.LittleEndian.Uint32(buf[offArchiveFileCount:]),
	}, nil
}

// WriteArchiveHeader writes the 32-byte archive header at the stream's
// current position (must be offset 0).
func WriteArchiveHeader(w io.Writer, h ArchiveHeader) error {
	return writeAll(w, encodeArchiveHeader(h))
}

// ReadArchiveHeader reads and validates the 32-byte archive header from the
// stream's current position.
func ReadArchiveHeader(r io.Reader) (ArchiveHeader, error) {
	buf := make([]byte, archiveHeaderSize)
	if err := readExact(r, buf); err != nil {
		return ArchiveHeader{}, err
	}

	return decodeArchiveHeader(buf)
}

// fileHeaderFlagCompressed marks a member body as DEFLATE-compressed rather
// than stored verbatim.
const fileHeaderFlagCompressed uint8 = 1 << 0

// File header layout: a 27-byte fixed prefix followed by a variable-length
// name, little-endian.
//
//	offset  size  field
//	0       2     nameLength          uint16
//	2       8     origSize            uint64
//	10      8     compSize            uint64
//	18      4     crc32Uncompressed   uint32
//	22      4     crc32Compressed     uint32
//	26      1     flags               uint8
//	27      N     name                nameLength bytes, not NUL-terminated
const (
	fileHeaderPrefixSize = 27

	offFileNameLength        = 0
	offFileOrigSize          = 2
	offFileCompSize          = 10
	offFileCrc32Uncompressed = 18
	offFileCrc32Compressed   = 22
	offFileFlags             = 26
)

// maxNameLength is the largest name length the uint16 nameLength field can
// represent.
const maxNameLength = 0xFFFF

// FileHeader is the decoded form of one member's header.
type FileHeader struct {
	Name              string
	OrigSize          uint64
	CompSize          uint64
	Crc32Uncompressed uint32
	Crc32Compressed   uint32
	Compressed        bool
}

func (h FileHeader) flags() uint8 {
	if h.Compressed {
		return fileHeaderFlagCompressed
	}

	return 0
}

// encodeFileHeaderPrefix renders the fixed 27-byte prefix of h. The name is
// appended separately since it is variable-length.
func encodeFileHeaderPrefix(h FileHeader) []byte {
	buf := make([]byte, fileHeaderPrefixSize)
	binary.LittleEndian.PutUint16(buf[offFileNameLength:], uint16(len(h.Name)))
	binary.LittleEndian.PutUint64(buf[offFileOrigSize:], h.OrigSize)
	binary.LittleEndian.PutUint64(buf[offFileCompSize:], h.CompSize)
	binary.LittleEndian.PutUint32(buf[offFileCrc32Uncompressed:], h.Crc32Uncompressed)
	binary.LittleEndian.PutUint32(buf[offFileCrc32Compressed:], h.Crc32Compressed)
	buf[offFileFlags] = h.flags()

	return buf
}

// filePatchOffsets records where, within the archive file, a file header's
// size and checksum fields landed, so the writer can seek back and patch
// them once the member body has been streamed.
type filePatchOffsets struct {
	headerStart int64
}

// WriteFileHeader writes h's header (prefix + name) at the stream's current
// position and returns the offsets needed to patch the size and checksum
// fields in afterwards. Callers that know OrigSize/CompSize/checksums up
// front may pass a fully populated h and skip patching; callers streaming a
// body should pass zeroed size/checksum fields and patch via
// PatchFileHeaderSizes and PatchFileHeaderCrcs once the body has been
// written. It fails with [NameTooLong] if len(h.Name) exceeds 65535 bytes.
func WriteFileHeader(f afs.File, h FileHeader) (filePatchOffsets, error) {
	if len(h.Name) > maxNameLength {
		return filePatchOffsets{}, newErr(NameTooLong, "WriteFileHeader", nil)
	}

	start, err := tell(f)
	if err != nil {
		return filePatchOffsets{}, err
	}

	if err := writeAll(f, encodeFileHeaderPrefix(h)); err != nil {
		return filePatchOffsets{}, err
	}

	if err := writeAll(f, []byte(h.Name)); err != nil {
		return filePatchOffsets{}, err
	}

	return filePatchOffsets{headerStart: start}, nil
}

// PatchFileHeaderSizes seeks back to a previously written header and patches
// in the final origSize and compSize fields, then restores the stream
// position to end-of-file.
func PatchFileHeaderSizes(f afs.File, off filePatchOffsets, origSize, compSize uint64) error {
	end, err := tell(f)
	if err != nil {
		return err
	}

	if err := seekAbs(f, off.headerStart+offFileOrigSize); err != nil {
		return err
	}

	if err := writeU64LE(f, origSize); err != nil {
		return err
	}

	if err := writeU64LE(f, compSize); err != nil {
		return err
	}

	return seekAbs(f, end)
}

// PatchFileHeaderCrcs seeks back to a previously written header and patches
// in the final checksum fields, then restores the stream position to
// end-of-file.
func PatchFileHeaderCrcs(f afs.File, off filePatchOffsets, crcUncompressed, crcCompressed uint32) error {
	end, err := tell(f)
	if err != nil {
		return err
	}

	if err := seekAbs(f, off.headerStart+offFileCrc32Uncompressed); err != nil {
		return err
	}

	if err := writeU32LE(f, crcUncompressed); err != nil {
		return err
	}

	if err := writeU32LE(f, crcCompressed); err != nil {
		return err
	}

	return seekAbs(f, end)
}

// ReadFileHeader reads one file header (prefix + name) from the stream's
// current position.
func ReadFileHeader(r io.Reader) (FileHeader, error) {
	prefix := make([]byte, fileHeaderPrefixSize)
	if err := readExact(r, prefix); err != nil {
		return FileHeader{}, err
	}

	nameLen := binary.LittleEndian.Uint16(prefix[offFileNameLength:])
	if nameLen == 0 {
		return FileHeader{}, newErr(Corrupted, "ReadFileHeader", nil)
	}

	name := make([]byte, nameLen)
	if err := readExact(r, name); err != nil {
		return FileHeader{}, err
	}

	flags := prefix[offFileFlags]

	return FileHeader{
		Name:              string(name),
		OrigSize:          binary.LittleEndian.Uint64(prefix[offFileOrigSize:]),
		CompSize:          binary.LittleEndian.Uint64(prefix[offFileCompSize:]),
		Crc32Uncompressed: binary.LittleEndian.Uint32(prefix[offFileCrc32Uncompressed:]),
		Crc32Compressed:   binary.LittleEndian.Uint32(prefix[offFileCrc32Compressed:]),
		Compressed:        flags&fileHeaderFlagCompressed != 0,
	}, nil
}

// PatchFileCount seeks back to the archive header's fileCount field, writes
// count, then restores the stream position to end-of-file.
func PatchFileCount(f afs.File, count uint32) error {
	end, err := tell(f)
	if err != nil {
		return err
	}

	if err := seekAbs(f, offArchiveFileCount); err != nil {
		return err
	}

	if err := writeU32LE(f, count); err != nil {
		return err
	}

	return seekAbs(f, end)
}
