package dedup

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/encoding/bamprovider"
	"github.com/grailbio/uiddedup/encoding/fastq"
	"github.com/grailbio/uiddedup/probe"
)

type taskState int

const (
	stateQueued taskState = iota
	stateCollecting
	stateDeduplicating
	stateExtending
	stateMerging
	stateWriting
	stateDone
	stateFailed
)

var taskStateNames = [...]string{"queued", "collecting", "deduplicating", "extending", "merging", "writing", "done", "failed"}

func (s taskState) String() string {
	return taskStateNames[s]
}

// probeTask carries one probe through the pipeline.
type probeTask struct {
	index int
	reads *ProbeReads
	state taskState
}

// newTaskQueue returns the queue between the submitter and the workers.  It
// is unbuffered: a probe's reads are held in memory only while a worker
// processes them, plus the one probe the submitter is handing over.
func newTaskQueue() chan *probeTask {
	return make(chan *probeTask)
}

func (t *probeTask) transition(next taskState) {
	log.Debug.Printf("%s: %v -> %v", t.reads.Probe.ID, t.state, next)
	t.state = next
}

// Pipeline deduplicates, extends and optionally merges the read pairs of every
// probe of Probes.
//
// Probes are collected serially, in chromosome and file order, and handed to
// Opts.Parallelism workers through an unbuffered queue, so at most one
// collected probe waits for a worker.  Every
// output is owned by one goroutine, and the records of a probe reach Output
// as one batch.  A failing probe is logged and recorded as failed in its
// stats; other probes carry on.  An error from the input or from any output
// stops the run.
type Pipeline struct {
	Opts     Opts
	Probes   *probe.Set
	Provider bamprovider.Provider

	// Output receives the records of representative pairs, and of duplicate
	// and unextended pairs when retained.  Required.
	Output RecordSink
	// FastqR1 and FastqR2 receive the extended mates in sequencing
	// orientation, Merged the merged reads.  Optional.
	FastqR1, FastqR2, Merged ReadSink
	// UIDTally, Details and Coverage receive TSV reports.  Optional.
	UIDTally, Details, Coverage io.Writer

	// Registry collects cross-probe state.  A new one is created if nil.
	Registry *Registry
}

// outputs holds one actor per configured output.
type outputs struct {
	records                  *actor
	r1, r2, merged           *actor
	tally, details, coverage *actor
	tallyW, detailsW, covW   *tsv.Writer
}

func (o *outputs) all() []*actor {
	var as []*actor
	for _, a := range []*actor{o.records, o.r1, o.r2, o.merged, o.tally, o.details, o.coverage} {
		if a != nil {
			as = append(as, a)
		}
	}
	return as
}

func (pl *Pipeline) newOutputs(e *errors.Once, cancel context.CancelFunc) *outputs {
	queue := pl.Opts.Parallelism
	o := &outputs{records: newActor("output", queue, e, cancel)}
	if pl.FastqR1 != nil {
		o.r1 = newActor("fastq-r1", queue, e, cancel)
	}
	if pl.FastqR2 != nil {
		o.r2 = newActor("fastq-r2", queue, e, cancel)
	}
	if pl.Merged != nil {
		o.merged = newActor("merged-fastq", queue, e, cancel)
	}
	report := func(name string, w io.Writer, header []string) (*actor, *tsv.Writer) {
		if w == nil {
			return nil, nil
		}
		a, tw := newActor(name, queue, e, cancel), tsv.NewWriter(w)
		a.send(func() error { return writeHeader(tw, header) })
		return a, tw
	}
	o.tally, o.tallyW = report("uid-tally", pl.UIDTally, tallyHeader)
	o.details, o.detailsW = report("details", pl.Details, detailsHeader)
	o.coverage, o.covW = report("coverage", pl.Coverage, coverageHeader)
	return o
}

// close flushes the reports and waits for every actor to finish.
func (o *outputs) close() {
	for _, x := range []struct {
		a *actor
		w *tsv.Writer
	}{{o.tally, o.tallyW}, {o.details, o.detailsW}, {o.coverage, o.covW}} {
		if x.a != nil {
			w := x.w
			x.a.send(w.Flush)
		}
	}
	for _, a := range o.all() {
		a.close()
	}
}

// Run processes all probes and returns the summary of the run.
func (pl *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if err := validate(&pl.Opts); err != nil {
		return nil, errors.E(errors.Invalid, err)
	}
	if pl.Output == nil {
		return nil, errors.E(errors.Invalid, "no output sink")
	}
	if pl.Registry == nil {
		pl.Registry = NewRegistry()
	}
	header, err := pl.Provider.GetHeader()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		e       errors.Once
		out     = pl.newOutputs(&e, cancel)
		tasks   = newTaskQueue()
		nProbes = len(pl.Probes.Probes)
		stats   = make([]ProbeStats, nProbes)
		cen     census
		wg      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if cen, err = takeCensus(pl.Provider, pl.Probes); err != nil {
			e.Set(errors.E(err, "reading input"))
			cancel()
		}
	}()
	submitted := 0
	go func() {
		defer wg.Done()
		defer close(tasks)
		submitted = pl.submit(ctx, header, tasks, &e, cancel)
	}()

	ext, merger := NewExtender(&pl.Opts), NewMerger(&pl.Opts)
	_ = traverse.Each(pl.Opts.Parallelism, func(int) error {
		for t := range tasks {
			s := pl.process(t, ext, merger, out)
			stats[t.index] = s
			if out.details != nil {
				out.details.send(func() error { return writeDetails(out.detailsW, &s) })
			}
			if out.coverage != nil {
				p := t.reads.Probe
				out.coverage.send(func() error { return writeCoverage(out.covW, p, &s) })
			}
		}
		return nil
	})
	wg.Wait()
	out.close()
	if err := e.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalReads:      cen.total,
		MappedReads:     cen.mapped,
		UnmappedReads:   cen.unmapped,
		OnTargetReads:   cen.onTarget,
		OffTargetReads:  cen.offTarget,
		DistinctUIDs:    pl.Registry.DistinctUIDs(),
		MultiProbeReads: pl.Registry.MultiProbeReads(),
		Stats:           stats[:submitted],
	}
	for i := range summary.Stats {
		summary.add(&summary.Stats[i])
	}
	for _, key := range pl.Registry.WeightedUIDs() {
		summary.WeightedComposition.Add(key)
	}
	summary.Duration = time.Since(start)
	log.Printf("processed %d probes (%d failed), %d pairs, %d UIDs, %d duplicates in %v",
		summary.Probes, summary.FailedProbes, summary.Pairs, summary.UIDs, summary.Duplicates, summary.Duration)
	return summary, nil
}

// submit collects the reads of every probe and queues them.  It returns the
// number of probes queued.
func (pl *Pipeline) submit(ctx context.Context, header *sam.Header, tasks chan<- *probeTask, e *errors.Once, cancel context.CancelFunc) int {
	n := 0
	for _, chrom := range pl.Probes.Chroms {
		ref := bamprovider.RefByName(header, chrom)
		for _, p := range pl.Probes.ForChrom(chrom) {
			if ctx.Err() != nil {
				return n
			}
			t := &probeTask{index: n, reads: &ProbeReads{Probe: p}}
			t.transition(stateCollecting)
			reads, err := CollectProbeReads(p, pl.Probes, pl.Provider, ref, pl.Opts.uidSlack())
			if err != nil {
				e.Set(errors.E(err, "collecting reads of probe", p.ID))
				cancel()
				return n
			}
			t.reads = reads
			select {
			case tasks <- t:
				n++
			case <-ctx.Done():
				return n
			}
		}
	}
	return n
}

// process deduplicates, extends and merges the pairs of one probe and sends
// its records to the outputs.  A panic is recovered into failed stats.
func (pl *Pipeline) process(t *probeTask, ext *Extender, merger *Merger, out *outputs) (stats ProbeStats) {
	p := t.reads.Probe
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: panic while %v: %v", p.ID, t.state, r)
			log.Error.Printf("%v", err)
			t.transition(stateFailed)
			stats = blankStats(p.ID, err)
		}
	}()

	t.transition(stateDeduplicating)
	red := ReduceUIDs(t.reads, &pl.Opts)
	stats = red.Stats

	t.transition(stateExtending)
	var (
		batch          []*sam.Record
		r1s, r2s, mrgs []fastq.Read
	)
	for _, pair := range red.Representatives {
		e1, e2 := ext.ExtendPair(p, pair)
		if !e1.OK() || !e2.OK() {
			stats.Unextended++
			reason, detail := e1.Failure, e1.Detail
			if reason == "" {
				reason, detail = e2.Failure, e2.Detail
			}
			log.Debug.Printf("%s: %s: extension failed: %s: %s", p.ID, pair.Name(), reason, detail)
			if pl.Opts.KeepUnextended {
				u1, u2 := copyRecord(pair.R1), copyRecord(pair.R2)
				tagPair(p.ID, pair, u1, u2)
				setAux(u1, extensionErrTag, reason)
				setAux(u2, extensionErrTag, reason)
				batch = append(batch, u1, u2)
			}
			continue
		}
		stats.Extended++
		tagPair(p.ID, pair, e1.Record, e2.Record)
		if pl.Opts.Merge {
			t.transition(stateMerging)
			m, err := merger.MergePair(p, e1.Record, e2.Record)
			t.transition(stateExtending)
			if err == nil {
				stats.Merged++
				batch = append(batch, m.Record)
				mrgs = append(mrgs, m.Read)
				continue
			}
			log.Debug.Printf("%s: merge failed, writing mates: %v", p.ID, err)
		}
		batch = append(batch, e1.Record, e2.Record)
		r1s = append(r1s, fastqRead(pair.Name(), e1.Record))
		r2s = append(r2s, fastqRead(pair.Name(), e2.Record))
	}
	if pl.Opts.KeepDuplicates {
		for _, pair := range red.Duplicates {
			d1, d2 := copyRecord(pair.R1), copyRecord(pair.R2)
			d1.Flags |= sam.Duplicate
			d2.Flags |= sam.Duplicate
			tagPair(p.ID, pair, d1, d2)
			batch = append(batch, d1, d2)
		}
	}

	t.transition(stateWriting)
	out.records.send(func() error {
		for _, r := range batch {
			if err := pl.Output.Write(r); err != nil {
				return err
			}
		}
		return nil
	})
	sendReads(out.r1, pl.FastqR1, r1s)
	sendReads(out.r2, pl.FastqR2, r2s)
	sendReads(out.merged, pl.Merged, mrgs)
	if out.tally != nil {
		out.tally.send(func() error { return writeTally(out.tallyW, red) })
	}
	pl.register(p, red)
	t.transition(stateDone)
	return stats
}

// register adds the UIDs and read names of red to the registry.  It runs
// once the probe has been processed, so a failed probe leaves no trace in
// the registry.
func (pl *Pipeline) register(p *probe.Probe, red *UIDReduction) {
	var keys []string
	for _, g := range red.Groups {
		pl.Registry.AddUID(g.Key)
		for _, pair := range g.Pairs {
			keys = append(keys, g.Key)
			pl.Registry.ClaimRead(pair.Name(), p.ID)
		}
	}
	pl.Registry.AddWeighted(keys...)
}

func sendReads(a *actor, sink ReadSink, reads []fastq.Read) {
	if a == nil || len(reads) == 0 {
		return
	}
	a.send(func() error {
		for i := range reads {
			if err := sink.Write(&reads[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// fastqRead returns r in sequencing orientation.
func fastqRead(name string, r *sam.Record) fastq.Read {
	seq, qual := readOrientation(r)
	if len(qual) != len(seq) {
		qual = make([]byte, len(seq))
	}
	return fastq.NewRead(name, seq, qual)
}
