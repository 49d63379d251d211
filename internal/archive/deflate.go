package archive

import (
	"bufio"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

// MinCompressionLevel and MaxCompressionLevel bound the levels accepted from
// callers to the ones klauspost/compress/flate actually implements.
const (
	MinCompressionLevel = flate.HuffmanOnly
	MaxCompressionLevel = flate.BestCompression

	// DefaultCompressionLevel matches flate.DefaultCompression.
	DefaultCompressionLevel = flate.DefaultCompression
)

// compressStream reads all of src, writes its DEFLATE-compressed form to
// dst, and returns the uncompressed byte count, compressed byte count, and
// CRC-32 of the uncompressed bytes. It drives the encoder with a single
// Write per chunk followed by Close, which is flate's NO_FLUSH-until-FINISH
// contract collapsed into io.Writer's simpler shape.
func compressStream(dst io.Writer, src io.Reader, level int) (origSize, compSize uint64, crc uint32, err error) {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return 0, 0, 0, newErr(InvalidArgument, "compressStream", nil)
	}

	counter := &countingWriter{w: dst}

	fw, ferr := flate.NewWriter(counter, level)
	if ferr != nil {
		return 0, 0, 0, newErr(Compression, "compressStream", ferr)
	}

	sum := crc32.NewIEEE()
	buf, err := allocateBuffer()
	if err != nil {
		return 0, 0, 0, err
	}

	var total uint64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			total += uint64(n)

			if _, writeErr := fw.Write(buf[:n]); writeErr != nil {
				return 0, 0, 0, newErr(Compression, "compressStream", writeErr)
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return 0, 0, 0, newErr(IO, "compressStream", readErr)
		}
	}

	if err := fw.Close(); err != nil {
		return 0, 0, 0, newErr(Compression, "compressStream", err)
	}

	return total, counter.n, sum.Sum32(), nil
}

// decompressStream inflates exactly compSize bytes of DEFLATE stream from
// src, writes the decompressed bytes to dst, and returns the decompressed
// byte count, the CRC-32 of the decompressed bytes, and the CRC-32 of the
// compSize raw (still-compressed) bytes consumed from src. It loops the
// decoder until its internal reader reports end-of-stream, per flate's
// until-EOS decode contract.
func decompressStream(dst io.Writer, src io.Reader, compSize uint64) (origSize uint64, crc, compCrc uint32, err error) {
	compSum := crc32.NewIEEE()
	rawBody := io.LimitReader(src, int64(compSize))
	teed := io.TeeReader(rawBody, compSum)
	// flate wraps any source that is not an io.ByteReader in a read-ahead
	// buffer of its own; handing it br (which is one) keeps the bytes it has
	// not consumed reachable for the drain below.
	br := bufio.NewReader(teed)
	fr := flate.NewReader(br)
	defer fr.Close()

	sum := crc32.NewIEEE()
	buf, err := allocateBuffer()
	if err != nil {
		return 0, 0, 0, err
	}

	var total uint64
	for {
		n, readErr := fr.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			total += uint64(n)

			if writeErr := writeAll(dst, buf[:n]); writeErr != nil {
				return 0, 0, 0, writeErr
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return 0, 0, 0, newErr(Corrupted, "decompressStream", readErr)
		}
	}

	// The flate decoder stops reading as soon as it sees the final block,
	// which can be before all compSize bytes have been consumed from br -
	// drain whatever is left so compSum covers every stored byte,
	// matching the CRC computed at write time over the full range. Any
	// byte drained here is junk sitting inside the declared compSize range
	// past the real end of the deflate stream, which makes the member
	// corrupted even though the decoder itself read back cleanly.
	drained, err := io.Copy(io.Discard, br)
	if err != nil {
		return 0, 0, 0, newErr(IO, "decompressStream", err)
	}

	if drained > 0 {
		return 0, 0, 0, newErr(Corrupted, "decompressStream", nil)
	}

	return total, sum.Sum32(), compSum.Sum32(), nil
}

// countingWriter tracks how many bytes have passed through Write, so
// compressStream can report the compressed size without a separate seek.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)

	return n, err
}
