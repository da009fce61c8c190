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
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// TailOptions selects which part of a log file Tail returns.
//
// A negative Offset asks for the last Limit lines. A non-negative Offset
// resumes reading from that byte position. With Follow set and nothing new
// to return, Tail polls for up to Wait before giving up.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file is not an error: the daemon may
// not have written its first line of the day yet.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		// A rotated or truncated file restarts from the top.
		if offset > info.Size() {
			offset = 0
		}
		result.Lines, result.Offset, err = linesFrom(path, offset)
	}
	if err != nil {
		return result, err
	}
	if len(result.Lines) == 0 && opts.Follow && opts.Wait > 0 {
		return await(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, 0, limit)
	start := 0
	scanner := newScanner(file)
	for scanner.Scan() {
		if len(ring) < limit {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[start] = scanner.Text()
		start = (start + 1) % limit
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := append(append([]string(nil), ring[start:]...), ring[:start]...)
	return lines, end, nil
}

func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	consumed := offset
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			// A partial trailing line is left for the next read.
			break
		}
		if err != nil {
			return lines, consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		lines = append(lines, line[:len(line)-1])
	}
	return lines, consumed, nil
}

func await(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-deadline.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
		}
		lines, next, err := linesFrom(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(lines) > 0 {
			return TailResult{Lines: lines, Offset: next}, nil
		}
		offset = next
	}
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
