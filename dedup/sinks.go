package dedup

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/encoding/fastq"
)

// RecordSink receives output alignment records.  A Pipeline calls Write from
// a single goroutine.
type RecordSink interface {
	Write(r *sam.Record) error
}

// ReadSink receives output FASTQ reads.  A Pipeline calls Write from a single
// goroutine.
type ReadSink interface {
	Write(r *fastq.Read) error
}

// BAMSink is a RecordSink that writes a BAM file.
type BAMSink struct {
	path string
	out  file.File
	w    *bam.Writer
}

// CreateBAMSink creates a BAM file at path with the given header.
func CreateBAMSink(ctx context.Context, path string, header *sam.Header, parallelism int) (*BAMSink, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "couldn't create output BAM:", path)
	}
	w, err := bam.NewWriter(out.Writer(ctx), header, parallelism)
	if err != nil {
		_ = out.Close(ctx)
		return nil, errors.E(err, "couldn't create output BAM:", path)
	}
	return &BAMSink{path: path, out: out, w: w}, nil
}

// Write implements RecordSink.
func (s *BAMSink) Write(r *sam.Record) error {
	return s.w.Write(r)
}

// Close flushes the BAM stream and closes the file.
func (s *BAMSink) Close(ctx context.Context) error {
	err := s.w.Close()
	if e := s.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, "error closing output BAM:", s.path)
	}
	return nil
}

// actor runs the functions it is sent, in order, on its own goroutine.  It
// owns whatever those functions write to.  The first error is stored in the
// shared errors.Once and cancels the pipeline; later functions are dropped.
type actor struct {
	name   string
	ops    chan func() error
	done   chan struct{}
	err    *errors.Once
	cancel context.CancelFunc
}

func newActor(name string, queue int, err *errors.Once, cancel context.CancelFunc) *actor {
	a := &actor{
		name:   name,
		ops:    make(chan func() error, queue),
		done:   make(chan struct{}),
		err:    err,
		cancel: cancel,
	}
	go a.loop()
	return a
}

func (a *actor) loop() {
	defer close(a.done)
	failed := false
	for op := range a.ops {
		if failed {
			continue
		}
		if err := op(); err != nil {
			log.Error.Printf("%s: %v", a.name, err)
			a.err.Set(errors.E(err, a.name))
			a.cancel()
			failed = true
		}
	}
}

// send queues op.  It blocks while the queue is full.
func (a *actor) send(op func() error) {
	a.ops <- op
}

// close waits for all queued functions to run.
func (a *actor) close() {
	close(a.ops)
	<-a.done
}
