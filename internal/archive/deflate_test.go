package archive

import (
	"bytes"
	"errors"
	"hash/crc32"
	"strings"
	"testing"
)

func Test_CompressStream_Then_DecompressStream_RoundTrips(t *testing.T) {
	t.Parallel()

	payload := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))
	wantCrc := crc32.ChecksumIEEE(payload)

	var compressed bytes.Buffer

	origSize, compSize, crc, err := compressStream(&compressed, bytes.NewReader(payload), DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("compressStream: %v", err)
	}

	if origSize != uint64(len(payload)) {
		t.Fatalf("origSize = %d, want %d", origSize, len(payload))
	}

	if crc != wantCrc {
		t.Fatalf("uncompressed crc = %#x, want %#x", crc, wantCrc)
	}

	if compSize == 0 || compSize != uint64(compressed.Len()) {
		t.Fatalf("compSize = %d, actual written = %d", compSize, compressed.Len())
	}

	if compSize >= origSize {
		t.Fatalf("compressed size %d should be smaller than original %d for repetitive input", compSize, origSize)
	}

	var decompressed bytes.Buffer

	gotOrigSize, gotCrc, gotCompCrc, err := decompressStream(&decompressed, bytes.NewReader(compressed.Bytes()), compSize)
	if err != nil {
		t.Fatalf("decompressStream: %v", err)
	}

	if gotOrigSize != origSize {
		t.Fatalf("decompressed size = %d, want %d", gotOrigSize, origSize)
	}

	if gotCrc != wantCrc {
		t.Fatalf("decompressed crc = %#x, want %#x", gotCrc, wantCrc)
	}

	wantCompCrc := crc32.ChecksumIEEE(compressed.Bytes())
	if gotCompCrc != wantCompCrc {
		t.Fatalf("compressed crc = %#x, want %#x", gotCompCrc, wantCompCrc)
	}

	if !bytes.Equal(decompressed.Bytes(), payload) {
		t.Fatalf("decompressed bytes do not match original payload")
	}
}

func Test_CompressStream_Rejects_Level_Outside_Supported_Range(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer

	_, _, _, err := compressStream(&dst, strings.NewReader("x"), MinCompressionLevel-1)
	if err == nil {
		t.Fatalf("expected error for out-of-range level")
	}
}

func Test_CompressStream_Handles_Empty_Input(t *testing.T) {
	t.Parallel()

	var compressed bytes.Buffer

	origSize, compSize, crc, err := compressStream(&compressed, bytes.NewReader(nil), DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("compressStream: %v", err)
	}

	if origSize != 0 {
		t.Fatalf("origSize = %d, want 0", origSize)
	}

	if crc != crc32.ChecksumIEEE(nil) {
		t.Fatalf("crc = %#x, want crc32 of empty input", crc)
	}

	var decompressed bytes.Buffer

	gotOrigSize, _, _, err := decompressStream(&decompressed, bytes.NewReader(compressed.Bytes()), compSize)
	if err != nil {
		t.Fatalf("decompressStream: %v", err)
	}

	if gotOrigSize != 0 {
		t.Fatalf("decompressed size = %d, want 0", gotOrigSize)
	}
}

func Test_DecompressStream_Returns_Corrupted_For_Trailing_Junk_Inside_CompSize(t *testing.T) {
	t.Parallel()

	payload := []byte("a short payload")

	var compressed bytes.Buffer
	_, compSize, _, err := compressStream(&compressed, bytes.NewReader(payload), DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("compressStream: %v", err)
	}

	withJunk := append(bytes.Clone(compressed.Bytes()), 0xAA, 0xBB, 0xCC)

	var decompressed bytes.Buffer
	_, _, _, err = decompressStream(&decompressed, bytes.NewReader(withJunk), compSize+3)
	if !errors.Is(err, Corrupted) {
		t.Fatalf("decompressStream err = %v, want Corrupted", err)
	}
}
