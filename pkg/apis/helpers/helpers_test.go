package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartServers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.NoError(t, StartHealthz(ctx, "127.0.0.1:0", "test"))
	assert.NoError(t, StartMetrics(ctx, "127.0.0.1:0"))
	assert.Error(t, StartHealthz(ctx, "127.0.0.1:-1", "test"))
}
