package bamprovider

import (
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for a coordinate-sorted BAM file.  Path and
// Index may name any location supported by grailbio/base/file, e.g. S3 URLs.
//
// Open files are kept in a pool after their iterator is closed, so the probes
// of one chromosome, which are read one after another, reuse a few file
// handles instead of reopening the BAM file for every region.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	// Index is the path of the *.bam.bai file. If "", Path + ".bai".
	Index string

	err errorreporter.T

	mu     sync.Mutex
	header *sam.Header
	index  *bam.Index
	idle   []*bamHandle
	// Number of iterators not yet closed.
	live int
}

// bamHandle is an open BAM file.
type bamHandle struct {
	in     file.File
	reader *bam.Reader
	// Offset of the first record, just past the header.
	first bgzf.Offset
}

func (h *bamHandle) close() error {
	err := h.reader.Close()
	if e := h.in.Close(vcontext.Background()); err == nil {
		err = e
	}
	return err
}

func (b *BAMProvider) indexPath() string {
	if b.Index == "" {
		return b.Path + ".bai"
	}
	return b.Index
}

func (b *BAMProvider) openHandle() (*bamHandle, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.Path)
	if err != nil {
		return nil, err
	}
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, err
	}
	return &bamHandle{in: in, reader: reader, first: reader.LastChunk().End}, nil
}

// acquire returns an idle handle, or opens a new one.
func (b *BAMProvider) acquire() (*bamHandle, error) {
	b.mu.Lock()
	b.live++
	if n := len(b.idle); n > 0 {
		h := b.idle[n-1]
		b.idle = b.idle[:n-1]
		b.mu.Unlock()
		return h, nil
	}
	b.mu.Unlock()
	h, err := b.openHandle()
	if err != nil {
		b.err.Set(err)
	}
	return h, err
}

// release returns h to the pool.  A handle whose last read failed is closed
// instead, since its position in the file is unknown.
func (b *BAMProvider) release(h *bamHandle, readErr error) {
	if h != nil && readErr != nil {
		b.err.Set(readErr)
		if err := h.close(); err != nil {
			b.err.Set(err)
		}
		h = nil
	}
	b.mu.Lock()
	if h != nil {
		b.idle = append(b.idle, h)
	}
	b.live--
	if b.live < 0 {
		vlog.Fatalf("%s: more iterators closed than created", b.Path)
	}
	b.mu.Unlock()
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	header := b.header
	b.mu.Unlock()
	if header != nil {
		return header, nil
	}
	h, err := b.acquire()
	if err != nil {
		b.release(nil, nil)
		return nil, err
	}
	header = h.reader.Header()
	b.release(h, nil)

	b.mu.Lock()
	b.header = header
	b.mu.Unlock()
	return header, nil
}

// loadIndex reads the BAM index on first use.  All region iterators share it.
func (b *BAMProvider) loadIndex() (*bam.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index != nil {
		return b.index, nil
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, b.indexPath())
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	idx, err := bam.ReadIndex(in.Reader(ctx))
	if err != nil {
		return nil, err
	}
	vlog.VI(1).Infof("%v: loaded index %v", b.Path, b.indexPath())
	b.index = idx
	return idx, nil
}

// Close implements the Provider interface.
func (b *BAMProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live > 0 {
		vlog.Fatalf("%s: %d iterators still open", b.Path, b.live)
	}
	for _, h := range b.idle {
		if err := h.close(); err != nil {
			b.err.Set(err)
		}
	}
	b.idle = nil
	return b.err.Err()
}

// NewRegionIterator implements the Provider interface.
func (b *BAMProvider) NewRegionIterator(ref *sam.Reference, start, limit int) Iterator {
	iter := &bamIterator{provider: b, reg: region{ref: ref, start: start, limit: limit}}
	if iter.h, iter.err = b.acquire(); iter.err != nil {
		return iter
	}
	switch {
	case ref == nil:
		iter.err = fmt.Errorf("bamprovider: nil reference for region [%d,%d)", start, limit)
		return iter
	case start >= limit:
		iter.err = io.EOF
		return iter
	}
	idx, err := b.loadIndex()
	if err != nil {
		iter.err = err
		return iter
	}
	chunks, err := idx.Chunks(ref, start, limit)
	if err == index.ErrInvalid || err == index.ErrNoReference || (err == nil && len(chunks) == 0) {
		iter.err = io.EOF
		return iter
	}
	if err != nil {
		iter.err = err
		return iter
	}
	iter.err = iter.h.reader.Seek(chunks[0].Begin)
	return iter
}

// NewIterator implements the Provider interface.
func (b *BAMProvider) NewIterator() Iterator {
	iter := &bamIterator{provider: b}
	if iter.h, iter.err = b.acquire(); iter.err != nil {
		return iter
	}
	iter.err = iter.h.reader.Seek(iter.h.first)
	return iter
}

type bamIterator struct {
	provider *BAMProvider
	h        *bamHandle
	// reg.ref==nil means the whole file.
	reg    region
	rec    *sam.Record
	err    error
	closed bool
}

// Scan implements the Iterator interface.
func (i *bamIterator) Scan() bool {
	if i.closed {
		vlog.Fatalf("%s: Scan after Close", i.provider.Path)
	}
	for i.err == nil {
		i.rec, i.err = i.h.reader.Read()
		switch {
		case i.err != nil:
		case i.reg.ref == nil || i.reg.overlaps(i.rec):
			return true
		case i.reg.past(i.rec):
			i.err = io.EOF
		}
	}
	return false
}

// Record implements the Iterator interface.
func (i *bamIterator) Record() *sam.Record {
	return i.rec
}

// Err implements the Iterator interface.
func (i *bamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *bamIterator) Close() error {
	err := i.Err()
	i.closed = true
	i.provider.release(i.h, err)
	return err
}
