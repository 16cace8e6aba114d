package platform

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info()

	assert.True(t, strings.HasPrefix(info.OS, runtime.GOOS))
	if runtime.GOOS == "linux" {
		assert.Equal(t, WpaSupplicantStack, info.Stack)
		assert.True(t, info.Stack.Supported())
	} else {
		assert.Equal(t, UnsupportedStack, info.Stack)
		assert.False(t, info.Stack.Supported())
	}
	assert.NotEmpty(t, info.Stack.String())
}

func TestUnsetStackIsUnsupported(t *testing.T) {
	assert.False(t, P2PStack("").Supported())
	assert.False(t, UnsupportedStack.Supported())
	assert.True(t, WpaSupplicantStack.Supported())
}
