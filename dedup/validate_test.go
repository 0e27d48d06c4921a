package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePaths(t *testing.T) {
	in := []string{"in.bam", "", "probes.tsv"}
	assert.NoError(t, ValidatePaths(in, []string{"out.bam", "", "r1.fq.gz"}))
	assert.Regexp(t, "out.bam is already used as an output", ValidatePaths(in, []string{"out.bam", "./out.bam"}))
	assert.Regexp(t, "input", ValidatePaths(in, []string{"dir/../in.bam"}))
}

func TestValidateOpts(t *testing.T) {
	opts := DefaultOpts
	assert.NoError(t, validate(&opts))

	opts.ExtensionUIDLength = 0
	assert.Regexp(t, "uid lengths", validate(&opts))
	opts.VariableUIDs = true
	assert.NoError(t, validate(&opts))

	opts = DefaultOpts
	opts.StrictTolerance = -1
	assert.Regexp(t, "strict-tolerance", validate(&opts))
}
