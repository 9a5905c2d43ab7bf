package version_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omarluq/storefront/internal/version"
)

func TestGet(t *testing.T) {
	t.Parallel()
	info := version.Get()
	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Commit)
}

func TestString(t *testing.T) {
	t.Parallel()
	s := version.String()
	assert.True(t, strings.HasPrefix(s, version.Version+" (commit: "))
	assert.Contains(t, s, "built: ")
}
