/*
Package dedup removes PCR duplicates from targeted sequencing read pairs
captured by extension/ligation probes, using the unique identifiers (UIDs)
sequenced at the 5' end of each mate.

Each probe is processed independently:

  1. CollectProbeReads fetches the pairs aligned within the probe's window,
     with R1 on the probe strand and R2 on the other.
  2. ReduceUIDs reads the extension UID from R1 and the ligation UID from
     R2, groups the pairs by the concatenated key, and picks the pair with the
     highest summed base quality of each group as its representative.
  3. Extender removes the UID and the primer from both mates of each
     representative and realigns the rest against the capture target.
  4. Merger optionally collapses the extended mates into one read.

Pipeline runs these steps for all probes on a bounded worker pool and writes
the records, FASTQ reads and reports to their sinks.

Output records carry the following tags:

  XP:Z  probe id
  XE:Z  extension UID
  XL:Z  ligation UID
  DI:Z  UID group id
  DS:i  UID group size
  MD:Z, NM:i  from the realignment against the capture target
  XX:Z  reason the extension of the pair failed
*/
package dedup
