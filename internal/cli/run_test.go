package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Run_Pack_Then_Unpack_RoundTrips_A_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "hello.txt")

	if err := os.WriteFile(srcPath, []byte("Hello, World!\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	archivePath := filepath.Join(dir, "a.arch")

	var packOut, packErr bytes.Buffer

	code := Run(nil, &packOut, &packErr, []string{"arch", "--cwd", dir, "pack", archivePath, srcPath}, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("pack exit code = %d, stderr = %s", code, packErr.String())
	}

	outDir := filepath.Join(dir, "out")

	var unpackOut, unpackErr bytes.Buffer

	code = Run(nil, &unpackOut, &unpackErr, []string{"arch", "--cwd", dir, "unpack", archivePath, outDir}, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("unpack exit code = %d, stderr = %s", code, unpackErr.String())
	}

	got, err := os.ReadFile(filepath.Join(outDir, "hello.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "Hello, World!\n" {
		t.Fatalf("got %q, want %q", got, "Hello, World!\n")
	}
}

func Test_Run_Ls_Lists_Packed_Member_Names(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "doc.txt")

	if err := os.WriteFile(srcPath, []byte("contents"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	archivePath := filepath.Join(dir, "a.arch")

	var packErr bytes.Buffer
	if code := Run(nil, &bytes.Buffer{}, &packErr, []string{"arch", "pack", archivePath, srcPath}, map[string]string{}, nil); code != 0 {
		t.Fatalf("pack exit code != 0: %s", packErr.String())
	}

	var lsOut, lsErr bytes.Buffer

	code := Run(nil, &lsOut, &lsErr, []string{"arch", "ls", archivePath}, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("ls exit code = %d, stderr = %s", code, lsErr.String())
	}

	if !strings.Contains(lsOut.String(), "doc.txt") {
		t.Fatalf("ls output %q does not mention doc.txt", lsOut.String())
	}
}

func Test_Run_With_No_Command_Prints_Usage_And_Fails(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := Run(nil, &out, &errOut, []string{"arch", "--cwd", t.TempDir()}, map[string]string{}, nil)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}

	if !strings.Contains(errOut.String(), "no command provided") {
		t.Fatalf("stderr = %q, want mention of missing command", errOut.String())
	}
}

func Test_Run_Unknown_Command_Fails(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	code := Run(nil, &out, &errOut, []string{"arch", "bogus"}, map[string]string{}, nil)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func Test_Run_Ls_On_Bad_Magic_Exits_2(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bad.arch")

	if err := os.WriteFile(archivePath, []byte("not an archive, just 32 bytes!!!"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out, errOut bytes.Buffer

	code := Run(nil, &out, &errOut, []string{"arch", "ls", archivePath}, map[string]string{}, nil)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2 (fatal top-level failure), stderr = %s", code, errOut.String())
	}
}

func Test_Run_Unpack_Skips_Corrupted_Member_And_Continues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	goodPath := filepath.Join(dir, "good.txt")
	if err := os.WriteFile(goodPath, []byte("fine"), 0o644); err != nil {
		t.Fatalf("WriteFile good: %v", err)
	}

	badPath := filepath.Join(dir, "bad.txt")
	if err := os.WriteFile(badPath, []byte("corruption probe bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile bad: %v", err)
	}

	archivePath := filepath.Join(dir, "a.arch")

	var packErr bytes.Buffer
	if code := Run(nil, &bytes.Buffer{}, &packErr, []string{"arch", "pack", archivePath, "--store", goodPath, badPath}, map[string]string{}, nil); code != 0 {
		t.Fatalf("pack exit code != 0: %s", packErr.String())
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	idx := bytes.Index(data, []byte("corruption probe bytes"))
	if idx < 0 {
		t.Fatalf("could not locate bad.txt's stored body in the archive")
	}

	data[idx] ^= 0xFF

	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		t.Fatalf("WriteFile corrupted archive: %v", err)
	}

	outDir := filepath.Join(dir, "out")

	var unpackOut, unpackErr bytes.Buffer

	code := Run(nil, &unpackOut, &unpackErr, []string{"arch", "unpack", archivePath, outDir}, map[string]string{}, nil)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (warning recorded, not fatal), stderr = %s", code, unpackErr.String())
	}

	if !strings.Contains(unpackErr.String(), "bad.txt") {
		t.Fatalf("stderr %q does not mention the skipped member", unpackErr.String())
	}

	got, err := os.ReadFile(filepath.Join(outDir, "good.txt"))
	if err != nil {
		t.Fatalf("ReadFile good.txt: %v (extraction should continue past the corrupted member)", err)
	}

	if string(got) != "fine" {
		t.Fatalf("good.txt = %q, want %q", got, "fine")
	}
}
