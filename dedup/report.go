package dedup

import (
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/uiddedup/probe"
)

var (
	tallyHeader    = []string{"probe_id", "ext_uid", "lig_uid", "read_pairs"}
	coverageHeader = []string{"probe_id", "chrom", "capture_start", "capture_stop",
		"total_pairs", "unique_pairs", "extended_pairs", "unextended_pairs"}
	detailsHeader = []string{"probe_id", "records", "filtered", "incomplete", "pairs",
		"uid_excluded", "strict_rejected", "uids", "duplicates",
		"min_pairs_per_uid", "max_pairs_per_uid", "mean_pairs_per_uid",
		"a", "c", "g", "t", "n", "weighted_a", "weighted_c", "weighted_g", "weighted_t", "weighted_n",
		"extended", "unextended", "merged", "failed", "error"}
)

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeHeader(w *tsv.Writer, cols []string) error {
	for _, c := range cols {
		w.WriteString(c)
	}
	return w.EndLine()
}

// writeTally writes one row per UID group of red.
func writeTally(w *tsv.Writer, red *UIDReduction) error {
	for _, g := range red.Groups {
		w.WriteString(red.Probe.ID)
		w.WriteString(g.ExtensionUID)
		w.WriteString(g.LigationUID)
		w.WriteInt64(int64(len(g.Pairs)))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

func writeCoverage(w *tsv.Writer, p *probe.Probe, s *ProbeStats) error {
	w.WriteString(p.ID)
	w.WriteString(p.Chrom)
	w.WriteInt64(int64(p.Capture.Start))
	w.WriteInt64(int64(p.Capture.Stop))
	w.WriteInt64(int64(s.Pairs))
	w.WriteInt64(int64(s.UIDs))
	w.WriteInt64(int64(s.Extended))
	w.WriteInt64(int64(s.Unextended))
	return w.EndLine()
}

func writeDetails(w *tsv.Writer, s *ProbeStats) error {
	w.WriteString(s.ProbeID)
	for _, v := range []int{s.Records, s.Filtered, s.Incomplete, s.Pairs,
		s.UIDExcluded, s.StrictRejected, s.UIDs, s.Duplicates,
		s.MinPairsPerUID, s.MaxPairsPerUID} {
		w.WriteInt64(int64(v))
	}
	w.WriteString(formatFloat(s.MeanPairsPerUID))
	for _, v := range s.Composition {
		w.WriteInt64(v)
	}
	for _, v := range s.WeightedComposition {
		w.WriteInt64(v)
	}
	w.WriteInt64(int64(s.Extended))
	w.WriteInt64(int64(s.Unextended))
	w.WriteInt64(int64(s.Merged))
	w.WriteString(strconv.FormatBool(s.Failed))
	w.WriteString(s.Error)
	return w.EndLine()
}

// WriteSummary writes s as a two-column key/value table.
func WriteSummary(out io.Writer, s *Summary) error {
	w := tsv.NewWriter(out)
	row := func(key, val string) {
		w.WriteString(key)
		w.WriteString(val)
		_ = w.EndLine()
	}
	itoa := func(v int64) string { return strconv.FormatInt(v, 10) }
	row("probes", itoa(int64(s.Probes)))
	row("failed_probes", itoa(int64(s.FailedProbes)))
	row("total_reads", itoa(s.TotalReads))
	row("mapped_reads", itoa(s.MappedReads))
	row("unmapped_reads", itoa(s.UnmappedReads))
	row("on_target_reads", itoa(s.OnTargetReads))
	row("off_target_reads", itoa(s.OffTargetReads))
	row("pairs", itoa(int64(s.Pairs)))
	row("uid_excluded", itoa(int64(s.UIDExcluded)))
	row("strict_rejected", itoa(int64(s.StrictRejected)))
	row("uids", itoa(int64(s.UIDs)))
	row("duplicates", itoa(int64(s.Duplicates)))
	row("extended", itoa(int64(s.Extended)))
	row("unextended", itoa(int64(s.Unextended)))
	row("merged", itoa(int64(s.Merged)))
	row("distinct_uids", itoa(int64(s.DistinctUIDs)))
	row("multi_probe_reads", itoa(int64(s.MultiProbeReads)))
	for i := 0; i < len(compositionBases); i++ {
		b := compositionBases[i]
		row("weighted_fraction_"+string(b), formatFloat(s.WeightedComposition.Fraction(b)))
	}
	row("duration_seconds", formatFloat(s.Duration.Seconds()))
	return w.Flush()
}
