package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	maxLineBytes          = 1024 * 1024
	defaultFollowInterval = 250 * time.Millisecond
)

// Last returns up to n trailing lines of path and the end-of-file offset. A
// missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if n <= 0 {
		return nil, info.Size(), nil
	}

	ring := make([]string, n)
	count := 0
	offset, err := scanLines(file, func(line string) {
		ring[count%n] = line
		count++
	})
	if err != nil {
		return nil, 0, err
	}
	if count <= n {
		return ring[:count], offset, nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), offset, nil
}

// Follow calls emit for every line appended to path after offset until ctx
// is done. It returns nil when ctx is cancelled.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = defaultFollowInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if offset == info.Size() {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	read, err := scanLines(file, emit)
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanLines feeds complete lines to fn and reports how many bytes they
// spanned. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		fn(trimNewline(line))
	}
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
