package probe

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/uiddedup/encoding/fasta"
)

// tsvRow is one row of a probe table.  Columns must appear in this order,
// under a header row with these names.  Sequence columns may be empty, in
// which case they are filled from the reference.
type tsvRow struct {
	ID            string `tsv:"probe_id"`
	Chrom         string `tsv:"chromosome"`
	Strand        string `tsv:"probe_strand"`
	ExtStart      int    `tsv:"extension_primer_start"`
	ExtStop       int    `tsv:"extension_primer_stop"`
	LigStart      int    `tsv:"ligation_primer_start"`
	LigStop       int    `tsv:"ligation_primer_stop"`
	CaptureStart  int    `tsv:"capture_target_start"`
	CaptureStop   int    `tsv:"capture_target_stop"`
	ExtensionSeq  string `tsv:"extension_primer_sequence"`
	LigationSeq   string `tsv:"ligation_primer_sequence"`
	CaptureSeqStr string `tsv:"capture_target_sequence"`
}

// Read parses a probe table.  Probes are returned in file order.  Rows
// starting with '#' are ignored.
func Read(r io.Reader) ([]*Probe, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.ValidateHeader = true
	tr.Comment = '#'

	var (
		probes []*Probe
		seen   = map[string]bool{}
	)
	for line := 2; ; line++ {
		var row tsvRow
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, "probe table", err)
		}
		p, err := row.probe()
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("probe table row %d", line), err)
		}
		if seen[p.ID] {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("probe table row %d: duplicate probe id %s", line, p.ID))
		}
		seen[p.ID] = true
		probes = append(probes, p)
	}
	if len(probes) == 0 {
		return nil, errors.E(errors.Invalid, "probe table has no probes")
	}
	return probes, nil
}

func (row *tsvRow) probe() (*Probe, error) {
	if row.ID == "" {
		return nil, fmt.Errorf("empty probe id")
	}
	if row.Chrom == "" {
		return nil, fmt.Errorf("probe %s: empty chromosome", row.ID)
	}
	strand, err := ParseStrand(row.Strand)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %v", row.ID, err)
	}
	return &Probe{
		ID:           row.ID,
		Chrom:        row.Chrom,
		Strand:       strand,
		Extension:    Interval{row.ExtStart, row.ExtStop},
		Ligation:     Interval{row.LigStart, row.LigStop},
		Capture:      Interval{row.CaptureStart, row.CaptureStop},
		ExtensionSeq: strings.ToUpper(row.ExtensionSeq),
		LigationSeq:  strings.ToUpper(row.LigationSeq),
		CaptureSeq:   strings.ToUpper(row.CaptureSeqStr),
	}, nil
}

// Load reads the probe table at path.
func Load(ctx context.Context, path string) (probes []*Probe, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open probe table", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	if probes, err = Read(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	log.Printf("loaded %d probes from %s", len(probes), path)
	return probes, nil
}

// FillSequences sets the empty sequences of p from the reference.
func (p *Probe) FillSequences(ref fasta.Fasta) error {
	fill := func(iv Interval, seq *string) error {
		if *seq != "" {
			return nil
		}
		if iv.Start < 1 || iv.Stop < iv.Start {
			return fmt.Errorf("probe %s: invalid interval %v", p.ID, iv)
		}
		s, err := ref.Get(p.Chrom, uint64(iv.Start-1), uint64(iv.Stop))
		if err != nil {
			return errors.E(err, "probe", p.ID)
		}
		*seq = s
		return nil
	}
	if err := fill(p.Extension, &p.ExtensionSeq); err != nil {
		return err
	}
	if err := fill(p.Ligation, &p.LigationSeq); err != nil {
		return err
	}
	return fill(p.Capture, &p.CaptureSeq)
}

// Validate checks that p lies within its chromosome in header, that its
// primers flank the capture target on the sides given by its strand, and
// that every sequence length matches its interval.
func (p *Probe) Validate(header *sam.Header) error {
	var ref *sam.Reference
	for _, r := range header.Refs() {
		if r.Name() == p.Chrom {
			ref = r
			break
		}
	}
	if ref == nil {
		return errors.E(errors.Invalid, fmt.Sprintf("probe %s: chromosome %s not in the alignment header", p.ID, p.Chrom))
	}
	for _, c := range []struct {
		name string
		iv   Interval
		seq  string
	}{
		{"extension primer", p.Extension, p.ExtensionSeq},
		{"ligation primer", p.Ligation, p.LigationSeq},
		{"capture target", p.Capture, p.CaptureSeq},
	} {
		if c.iv.Start < 1 || c.iv.Stop < c.iv.Start || c.iv.Stop > ref.Len() {
			return errors.E(errors.Invalid, fmt.Sprintf("probe %s: %s %v outside %s:1-%d",
				p.ID, c.name, c.iv, p.Chrom, ref.Len()))
		}
		if len(c.seq) != c.iv.Len() {
			return errors.E(errors.Invalid, fmt.Sprintf("probe %s: %s sequence has length %d, interval %v has length %d",
				p.ID, c.name, len(c.seq), c.iv, c.iv.Len()))
		}
	}
	left, right := p.LeftPrimer(), p.RightPrimer()
	if left.Stop >= p.Capture.Start || right.Start <= p.Capture.Stop {
		return errors.E(errors.Invalid, fmt.Sprintf("probe %s: primers %v and %v do not flank capture target %v on strand %v",
			p.ID, left.Interval, right.Interval, p.Capture, p.Strand))
	}
	return nil
}
