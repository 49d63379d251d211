package archive

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"

	afs "github.com/kbulgrien/arch/internal/fs"
)

// copyBufferSizes is the buffer-size retry ladder used when allocating a
// scratch buffer for copyN and the compression bridge. Implementations in
// memory-rich environments could just use a fixed 16KiB buffer; trying
// progressively smaller sizes on allocation failure is a graceful-degradation
// strategy, not a correctness requirement.
var copyBufferSizes = []int{64 * 1024, 32 * 1024, 16 * 1024, 8 * 1024, 4 * 1024}

// allocateBuffer tries copyBufferSizes in order and returns the first one
// that can be allocated. A plain make() on these modest sizes practically
// never fails in a Go program (the runtime panics on OOM rather than
// returning an error), so this only exists to give OutOfMemory a concrete,
// reachable meaning for callers that construct [Error] by hand (e.g. in
// tests) and to document the retry ladder from the original design.
func allocateBuffer() ([]byte, error) {
	for _, size := range copyBufferSizes {
		buf := make([]byte, size)
		if buf != nil {
			return buf, nil
		}
	}

	return nil, newErr(OutOfMemory, "allocateBuffer", errors.New("no buffer size could be allocated"))
}

// readExact reads exactly len(buf) bytes from r, or fails with
// [UnexpectedEOF] (if the source reached EOF early) or [IO] (any other
// read error). Partial reads are not acceptable here - readExact always
// loops until the buffer is full or an error occurs.
func readExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return newErr(UnexpectedEOF, "readExact", err)
	}

	return newErr(IO, "readExact", err)
}

// writeAll writes all of buf to w, or fails with [IO].
func writeAll(w io.Writer, buf []byte) error {
	_, err := w.Write(buf)
	if err != nil {
		return newErr(IO, "writeAll", err)
	}

	return nil
}

// copyN copies exactly n bytes from in to out in fixed-size chunks,
// maintaining a rolling CRC-32 (IEEE polynomial, reflected, init 0, final
// XOR 0xFFFFFFFF - the same checksum hash/crc32.ChecksumIEEE computes) over
// the bytes as they are read from in. It fails with [UnexpectedEOF] if in
// underruns before n bytes are produced, or [IO] if the write to out fails.
func copyN(in io.Reader, out io.Writer, n uint64) (crc uint32, err error) {
	buf, err := allocateBuffer()
	if err != nil {
		return 0, err
	}

	sum := crc32.NewIEEE()

	remaining := n
	for remaining > 0 {
		chunk := buf
		if uint64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		if readErr := readExact(in, chunk); readErr != nil {
			return 0, readErr
		}

		sum.Write(chunk)

		if writeErr := writeAll(out, chunk); writeErr != nil {
			return 0, writeErr
		}

		remaining -= uint64(len(chunk))
	}

	return sum.Sum32(), nil
}

// readU16LE reads a little-endian uint16 from the current position of r.
func readU16LE(r io.Reader) (uint16, error) {
	var buf [2]byte
	if err := readExact(r, buf[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(buf[:]), nil
}

// readU32LE reads a little-endian uint32 from the current position of r.
func readU32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readExact(r, buf[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readU64LE reads a little-endian uint64 from the current position of r.
func readU64LE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readExact(r, buf[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

// writeU16LE writes v to w as little-endian.
func writeU16LE(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)

	return writeAll(w, buf[:])
}

// writeU32LE writes v to w as little-endian.
func writeU32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)

	return writeAll(w, buf[:])
}

// writeU64LE writes v to w as little-endian.
func writeU64LE(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	return writeAll(w, buf[:])
}

// seekAbs seeks f to an absolute offset from the start of the file.
func seekAbs(f afs.File, offset int64) error {
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return newErr(IO, "seekAbs", err)
	}

	return nil
}

// seekEnd seeks f to end-of-file and returns the resulting offset.
func seekEnd(f afs.File) (int64, error) {
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, newErr(IO, "seekEnd", err)
	}

	return pos, nil
}

// tell returns f's current offset without moving it.
func tell(f afs.File) (int64, error) {
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, newErr(IO, "tell", err)
	}

	return pos, nil
}
