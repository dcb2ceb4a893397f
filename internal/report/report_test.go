package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"statproj/internal/errs"
)

func TestSummaryCounts(t *testing.T) {
	s := NewSummary()
	s.OK("validate", "environment ok")
	s.OK("template", "rendered 12 files")
	s.Fail("publish", errs.New(errs.EPermission, "bad credentials"))
	s.Skip("publish-protection", "publication failed")
	s.Warn("branch-protection", "could not enable reviews")

	ok, failed, skipped, warned := s.Counts()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, warned)
	assert.True(t, s.Failed())
}

func TestRenderIncludesHints(t *testing.T) {
	s := NewSummary()
	s.OK("validate", "environment ok")
	s.Fail("provision", errs.WithHint(
		errs.New(errs.EDependencyResolution, "conflicting constraints: pandas"),
		"re-run `statproj build` after resolving the dependency conflict",
	))

	var buf strings.Builder
	s.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "provision")
	assert.Contains(t, out, "1 succeeded, 1 failed, 0 skipped")
	assert.Contains(t, out, "next step: re-run `statproj build`")
}

func TestEmptySummaryNotFailed(t *testing.T) {
	s := NewSummary()
	assert.False(t, s.Failed())
}
