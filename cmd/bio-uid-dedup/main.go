package main

/*
  bio-uid-dedup removes PCR duplicates from probe-captured read pairs using
  the UIDs at the start of each mate, trims the primers of the surviving pairs
  and optionally merges their mates.  For more information, see
  github.com/grailbio/uiddedup/dedup/doc.go
*/

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/uiddedup/align"
	"github.com/grailbio/uiddedup/dedup"
	"github.com/grailbio/uiddedup/encoding/bamprovider"
	"github.com/grailbio/uiddedup/encoding/fasta"
	"github.com/grailbio/uiddedup/encoding/fastq"
	"github.com/grailbio/uiddedup/probe"
)

var (
	bamFile     = flag.String("bam", "", "Input BAM filename, coordinate sorted and indexed")
	indexFile   = flag.String("index", "", "Input BAM index filename. By default, set to input BAM filename + .bai")
	probesFile  = flag.String("probes", "", "Probe table (TSV)")
	referenceFa = flag.String("reference", "", "Reference FASTA, used to fill probe sequences missing from the probe table")
	outputPath  = flag.String("output", "", "Output BAM filename")

	fastqR1     = flag.String("fastq-r1", "", "Output FASTQ for extended R1 mates, gzipped if the name ends in .gz")
	fastqR2     = flag.String("fastq-r2", "", "Output FASTQ for extended R2 mates, gzipped if the name ends in .gz")
	mergedFastq = flag.String("merged-fastq", "", "Output FASTQ for merged pairs, gzipped if the name ends in .gz")
	uidTally    = flag.String("uid-tally", "", "Output TSV with the number of pairs of every UID of every probe")
	details     = flag.String("details", "", "Output TSV with per-probe statistics")
	coverage    = flag.String("coverage", "", "Output TSV with per-probe pair counts")
	summaryPath = flag.String("summary", "", "Output TSV with run statistics. By default, written to stdout")

	parallelism      = flag.Int("parallelism", dedup.DefaultOpts.Parallelism, "Number of probes processed concurrently")
	extensionUIDLen  = flag.Int("extension-uid-length", dedup.DefaultOpts.ExtensionUIDLength, "Length of the UID at the start of R1")
	ligationUIDLen   = flag.Int("ligation-uid-length", dedup.DefaultOpts.LigationUIDLength, "Length of the UID at the start of R2")
	variableUIDs     = flag.Bool("variable-uids", false, "Find the UID length of every mate by aligning its primer")
	maxUIDLen        = flag.Int("max-uid-length", dedup.DefaultOpts.MaxUIDLength, "Maximum UID length with -variable-uids")
	strict           = flag.Bool("strict", false, "Drop pairs whose mates do not start at the primer boundary after their UID")
	strictTolerance  = flag.Int("strict-tolerance", dedup.DefaultOpts.StrictTolerance, "Allowed distance from the primer boundary with -strict")
	windowPadding    = flag.Int("window-padding", dedup.DefaultOpts.WindowPadding, "Padding in bp added to both sides of every probe when assigning reads")
	alignmentBuffer  = flag.Int("alignment-buffer", dedup.DefaultOpts.AlignmentBuffer, "Read bases beyond the primer length aligned against the primer")
	acceptanceBuffer = flag.Int("acceptance-buffer", dedup.DefaultOpts.AcceptanceBuffer, "Maximum distance between the aligned primer end and the primer length")
	matchScore       = flag.Int("match", align.DefaultScoring.Match, "Alignment match score")
	mismatchScore    = flag.Int("mismatch", align.DefaultScoring.Mismatch, "Alignment mismatch score")
	gapScore         = flag.Int("gap", align.DefaultScoring.Gap, "Alignment gap score")
	merge            = flag.Bool("merge", false, "Merge the extended mates of every pair into one read")
	keepDuplicates   = flag.Bool("keep-duplicates", false, "Write duplicate pairs, flagged as duplicates")
	keepUnextended   = flag.Bool("keep-unextended", dedup.DefaultOpts.KeepUnextended, "Write pairs whose extension failed, tagged with XX")
)

// report is an optional TSV output file.
type report struct {
	path string
	f    file.File
}

func createReport(ctx context.Context, path string) *report {
	if path == "" {
		return nil
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	return &report{path: path, f: f}
}

func (r *report) writer(ctx context.Context) io.Writer {
	if r == nil {
		return nil
	}
	return r.f.Writer(ctx)
}

func (r *report) close(ctx context.Context) {
	if r == nil {
		return
	}
	if err := r.f.Close(ctx); err != nil {
		log.Fatalf("close %s: %v", r.path, err)
	}
}

func createFastq(ctx context.Context, path string) *fastq.FileWriter {
	if path == "" {
		return nil
	}
	w, err := fastq.Create(ctx, path)
	if err != nil {
		log.Fatalf("create %s: %v", path, err)
	}
	return w
}

// readSink avoids storing a nil *fastq.FileWriter in a non-nil interface.
func readSink(w *fastq.FileWriter) dedup.ReadSink {
	if w == nil {
		return nil
	}
	return w
}

func closeFastq(ctx context.Context, w *fastq.FileWriter, path string) {
	if w == nil {
		return
	}
	if err := w.Close(ctx); err != nil {
		log.Fatalf("close %s: %v", path, err)
	}
}

func loadProbes(ctx context.Context) []*probe.Probe {
	probes, err := probe.Load(ctx, *probesFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *referenceFa != "" {
		ref, err := fasta.Open(ctx, *referenceFa)
		if err != nil {
			log.Fatalf("%v", err)
		}
		for _, p := range probes {
			if err := p.FillSequences(ref); err != nil {
				log.Fatalf("%v", err)
			}
		}
	}
	return probes
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	// Validate parameters.
	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed flags, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}
	if *bamFile == "" || *probesFile == "" || *outputPath == "" {
		log.Fatalf("-bam, -probes and -output are required")
	}
	inputs := []string{*bamFile, *indexFile, *probesFile, *referenceFa}
	outputs := []string{*outputPath, *fastqR1, *fastqR2, *mergedFastq, *uidTally, *details, *coverage, *summaryPath}
	if err := dedup.ValidatePaths(inputs, outputs); err != nil {
		log.Fatalf("%v", err)
	}

	opts := dedup.Opts{
		Parallelism:        *parallelism,
		ExtensionUIDLength: *extensionUIDLen,
		LigationUIDLength:  *ligationUIDLen,
		VariableUIDs:       *variableUIDs,
		MaxUIDLength:       *maxUIDLen,
		Strict:             *strict,
		StrictTolerance:    *strictTolerance,
		WindowPadding:      *windowPadding,
		AlignmentBuffer:    *alignmentBuffer,
		AcceptanceBuffer:   *acceptanceBuffer,
		Scoring:            align.Scoring{Match: *matchScore, Mismatch: *mismatchScore, Gap: *gapScore},
		Merge:              *merge,
		KeepDuplicates:     *keepDuplicates,
		KeepUnextended:     *keepUnextended,
	}

	ctx := vcontext.Background()
	probes := loadProbes(ctx)

	// Create the provider.
	provider := bamprovider.NewProvider(*bamFile, bamprovider.ProviderOpts{Index: *indexFile})
	header, err := provider.GetHeader()
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, p := range probes {
		if err := p.Validate(header); err != nil {
			log.Fatalf("%v", err)
		}
	}
	set, err := probe.NewSet(probes, opts.WindowPadding)
	if err != nil {
		log.Fatalf("%v", err)
	}

	out, err := dedup.CreateBAMSink(ctx, *outputPath, header, opts.Parallelism)
	if err != nil {
		log.Fatalf("%v", err)
	}
	r1, r2, merged := createFastq(ctx, *fastqR1), createFastq(ctx, *fastqR2), createFastq(ctx, *mergedFastq)
	tally, det, cov := createReport(ctx, *uidTally), createReport(ctx, *details), createReport(ctx, *coverage)

	pl := dedup.Pipeline{
		Opts:     opts,
		Probes:   set,
		Provider: provider,
		Output:   out,
		FastqR1:  readSink(r1),
		FastqR2:  readSink(r2),
		Merged:   readSink(merged),
		UIDTally: tally.writer(ctx),
		Details:  det.writer(ctx),
		Coverage: cov.writer(ctx),
	}
	summary, err := pl.Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := out.Close(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	closeFastq(ctx, r1, *fastqR1)
	closeFastq(ctx, r2, *fastqR2)
	closeFastq(ctx, merged, *mergedFastq)
	tally.close(ctx)
	det.close(ctx)
	cov.close(ctx)
	if err := provider.Close(); err != nil {
		log.Fatalf("%v", err)
	}

	if *summaryPath == "" {
		if err := dedup.WriteSummary(os.Stdout, summary); err != nil {
			log.Fatalf("%v", err)
		}
	} else {
		sum := createReport(ctx, *summaryPath)
		if err := dedup.WriteSummary(sum.writer(ctx), summary); err != nil {
			log.Fatalf("%v", err)
		}
		sum.close(ctx)
	}
	log.Debug.Printf("exiting")
}
