package contxt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwner(t *testing.T) {
	_, ok := Owner(context.Background())
	assert.False(t, ok)

	id, ok := Owner(WithOwner(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}
