package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringStartsWithBuild(t *testing.T) {
	old := Build
	t.Cleanup(func() { Build = old })
	Build = "2024.05.01"
	assert.True(t, strings.HasPrefix(String(), "2024.05.01"))
}
