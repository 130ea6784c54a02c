package backend

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// bufferedReader reads through a 4 KiB user-space buffer.
type bufferedReader struct {
	r *bufio.Reader
}

func newBufferedReader(f *os.File) *bufferedReader {
	return &bufferedReader{r: bufio.NewReader(f)}
}

func (b *bufferedReader) readBlock(p []byte, _ int64) (int, error) {
	return readFull(b.r, p)
}

// bufferedWriter writes through a 4 KiB user-space buffer. Bytes that are
// still buffered when the final flush fails are reported as a short write.
type bufferedWriter struct {
	w   *bufio.Writer
	off int64
}

func newBufferedWriter(f *os.File) *bufferedWriter {
	return &bufferedWriter{w: bufio.NewWriter(f)}
}

func (b *bufferedWriter) writeBlock(p []byte, _ int64) (int, error) {
	n, err := b.w.Write(p)
	b.off += int64(n)
	return n, err
}

func (b *bufferedWriter) flush(t *tally) {
	pending := b.w.Buffered()
	if pending == 0 {
		return
	}
	if err := b.w.Flush(); err != nil {
		got := pending - b.w.Buffered()
		t.shortWrite(b.off-int64(pending), pending, got, err)
	}
}

// readFull reads len(p) bytes unless the reader ends first. Reaching the end
// is not an error.
func readFull(r io.Reader, p []byte) (int, error) {
	n, err := io.ReadFull(r, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}
