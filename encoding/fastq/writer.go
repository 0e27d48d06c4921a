// Package fastq writes FASTQ records, optionally gzip-compressed.
package fastq

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// PhredOffset is added to raw Phred scores to get printable quality
// characters.
const PhredOffset = 33

var newline = []byte{'\n'}

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// NewRead builds a Read from a read name, ASCII bases and raw Phred scores.
// The name gets the "@" prefix and the scores are shifted by PhredOffset.
func NewRead(name string, seq []byte, phred []byte) Read {
	qual := make([]byte, len(phred))
	for i, q := range phred {
		qual[i] = q + PhredOffset
	}
	return Read{ID: "@" + name, Seq: string(seq), Unk: "+", Qual: string(qual)}
}

// Writer is a FASTQ writer.  It is not thread safe.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format.
// An error is returned if the write failed.  Once a write fails, all later
// writes return the same error.
func (w *Writer) Write(r *Read) error {
	w.writeln(r.ID)
	w.writeln(r.Seq)
	w.writeln(r.Unk)
	w.writeln(r.Qual)
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, line)
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}

// FileWriter is a Writer bound to a file.  Paths ending in ".gz" are
// gzip-compressed.
type FileWriter struct {
	*Writer
	path string
	out  file.File
	buf  *bufio.Writer
	gz   *gzip.Writer
}

// Create creates the file at path and returns a writer for it.  The caller
// must call Close.
func Create(ctx context.Context, path string) (*FileWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{path: path, out: out}
	var w io.Writer = out.Writer(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		fw.gz = gzip.NewWriter(w)
		w = fw.gz
	}
	fw.buf = bufio.NewWriterSize(w, 1<<20)
	fw.Writer = NewWriter(fw.buf)
	log.Debug.Printf("fastq: writing %s (gzip=%v)", path, fw.gz != nil)
	return fw, nil
}

// Close flushes buffered data and closes the file.  It returns the first
// error encountered by any Write, or by Close itself.
func (fw *FileWriter) Close(ctx context.Context) error {
	err := fw.err
	if e := fw.buf.Flush(); e != nil && err == nil {
		err = e
	}
	if fw.gz != nil {
		if e := fw.gz.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := fw.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}
