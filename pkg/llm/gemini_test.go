package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeminiProvider_CloseIsNoOp(t *testing.T) {
	p := &GeminiProvider{}
	assert.NoError(t, p.Close())
}
