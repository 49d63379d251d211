package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/kbulgrien/arch/internal/archive"
	afs "github.com/kbulgrien/arch/internal/fs"
)

// UnpackCmd builds the "unpack" command, which extracts every member of an
// archive to a destination directory.
func UnpackCmd(cfg Config, fsys afs.FS) *Command {
	flags := flag.NewFlagSet("unpack", flag.ContinueOnError)
	interactive := flags.Bool("interactive", false, "prompt before overwriting an existing file")

	return &Command{
		Flags: flags,
		Usage: "unpack <archive> [outDir] [--interactive]",
		Short: "Extract an archive's members",
		Long:  "Extracts every member of <archive> into outDir (default: the current directory), verifying checksums as it goes. A member that fails verification is warned about and skipped rather than aborting the whole extraction.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) < 1 {
				return errors.New("unpack requires an archive path")
			}

			archivePath := args[0]

			outDir := "."
			if len(args) >= 2 {
				outDir = args[1]
			}

			r, err := archive.OpenArchive(fsys, archivePath)
			if err != nil {
				return Fatal(err)
			}
			defer r.Close()

			var prompt *liner.State
			if *interactive {
				prompt = liner.NewLiner()
				defer prompt.Close()
			}

			count := 0

			for {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				member, err := r.Next()
				if err != nil {
					if errors.Is(err, io.EOF) {
						break
					}

					return Fatal(err)
				}

				destPath := filepath.Join(outDir, filepath.FromSlash(member.Header.Name))

				if prompt != nil {
					if _, statErr := fsys.Stat(destPath); statErr == nil {
						overwrite, askErr := confirmOverwrite(prompt, destPath)
						if askErr != nil {
							return Fatal(askErr)
						}

						if !overwrite {
							o.Warn("skipped %s: not overwritten", destPath)

							if err := member.Skip(); err != nil {
								return Fatal(err)
							}

							continue
						}
					}
				}

				if err := fsys.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
					return Fatal(err)
				}

				if err := extractMember(member, destPath); err != nil {
					o.Warn("skipping %s: %v", member.Header.Name, err)
					continue
				}

				count++
			}

			o.Printf("unpacked %d file(s) into %s\n", count, outDir)

			return nil
		},
	}
}

// extractMember materializes a member's verified body at destPath via a
// temp-file-then-rename sequence, so a checksum failure or a process kill
// mid-extraction never leaves a half-written file at its final name.
//
// atomic.WriteFile wants an io.Reader, while Member.Stream wants an
// io.Writer to push decompressed bytes into, so the two are bridged with an
// io.Pipe: a goroutine drives Stream into the pipe's write end while
// atomic.WriteFile drains the read end into the real temp-file-then-rename
// sequence. A verification failure reaches atomic.WriteFile as a read
// error via CloseWithError, so no renamed file is ever left corrupt.
func extractMember(member archive.Member, destPath string) error {
	pr, pw := io.Pipe()

	streamErrCh := make(chan error, 1)

	go func() {
		streamErr := member.Stream(pw)
		streamErrCh <- streamErr
		_ = pw.CloseWithError(streamErr)
	}()

	writeErr := atomic.WriteFile(destPath, pr)

	if streamErr := <-streamErrCh; streamErr != nil {
		return fmt.Errorf("streaming %s: %w", member.Header.Name, streamErr)
	}

	if writeErr != nil {
		return fmt.Errorf("writing %s: %w", destPath, writeErr)
	}

	return nil
}

func confirmOverwrite(prompt *liner.State, path string) (bool, error) {
	answer, err := prompt.Prompt(fmt.Sprintf("overwrite %s? (y/N): ", path))
	if err != nil {
		return false, err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes", nil
}
