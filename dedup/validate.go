package dedup

import (
	"fmt"
	"path/filepath"
)

func validate(opts *Opts) error {
	if opts.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if opts.VariableUIDs {
		if opts.MaxUIDLength <= 0 {
			return fmt.Errorf("max-uid-length must be positive")
		}
	} else if opts.ExtensionUIDLength <= 0 || opts.LigationUIDLength <= 0 {
		return fmt.Errorf("uid lengths must be positive, got %d and %d",
			opts.ExtensionUIDLength, opts.LigationUIDLength)
	}
	if opts.StrictTolerance < 0 {
		return fmt.Errorf("strict-tolerance must be non-negative")
	}
	if opts.WindowPadding < 0 {
		return fmt.Errorf("window-padding must be non-negative")
	}
	if opts.AlignmentBuffer < 0 || opts.AcceptanceBuffer < 0 {
		return fmt.Errorf("alignment and acceptance buffers must be non-negative")
	}
	if opts.Scoring.Match <= 0 {
		return fmt.Errorf("match score must be positive")
	}
	return nil
}

// ValidatePaths checks that no output path names an input file, and that no
// two outputs share a path.  Empty paths are ignored.
func ValidatePaths(inputs, outputs []string) error {
	seen := map[string]string{}
	for _, in := range inputs {
		if in != "" {
			seen[filepath.Clean(in)] = "input"
		}
	}
	for _, out := range outputs {
		if out == "" {
			continue
		}
		clean := filepath.Clean(out)
		if kind, ok := seen[clean]; ok {
			return fmt.Errorf("output %s is already used as an %s", out, kind)
		}
		seen[clean] = "output"
	}
	return nil
}
