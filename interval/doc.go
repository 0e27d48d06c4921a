/*Package interval implements a containment index over genomic intervals, used
  to map an aligned read to the probes whose capture footprint covers it.

  Unlike a general interval tree, the index assumes that no interval is
  strictly nested inside another one. Under that assumption the intervals'
  ends are sorted in the same order as their starts, which lets a query stop
  scanning at the first interval that no longer reaches the query end.
  ContainmentIndex.Validate checks the assumption; callers that load
  user-supplied intervals must call it before querying.
*/
package interval
