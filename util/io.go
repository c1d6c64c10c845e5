package util

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ReadLines scans r line by line and delivers each line, with
// surrounding whitespace removed, on the returned channel.  Blank lines
// are skipped.  The channel is closed at EOF, on a read error, or when
// ctx is cancelled.
//
// The scanning goroutine may stay blocked in r.Read after ctx ends if r
// is something like os.Stdin that cannot be interrupted; it exits at the
// next line or EOF.
func ReadLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, DefaultBufSize), 1<<20)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
