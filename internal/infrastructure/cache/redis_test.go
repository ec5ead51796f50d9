package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Open("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open("http://not-redis")
	assert.Error(t, err)
}
