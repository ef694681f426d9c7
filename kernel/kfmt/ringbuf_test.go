package kfmt

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer(t *testing.T) {
	expStr := "the big brown fox jumped over the lazy dog"

	t.Run("read/write", func(t *testing.T) {
		var rb ringBuffer
		n, err := rb.Write([]byte(expStr))
		require.NoError(t, err)
		require.Equal(t, len(expStr), n)

		got, err := io.ReadAll(&rb)
		require.NoError(t, err)
		require.Equal(t, expStr, string(got))
	})

	t.Run("overwrite oldest", func(t *testing.T) {
		var rb ringBuffer
		_, _ = rb.Write([]byte(strings.Repeat("x", ringBufferSize)))
		_, _ = rb.Write([]byte(expStr))

		got, err := io.ReadAll(&rb)
		require.NoError(t, err)
		require.Len(t, got, ringBufferSize-1)
		require.True(t, strings.HasSuffix(string(got), expStr))
	})

	t.Run("empty", func(t *testing.T) {
		var rb ringBuffer
		n, err := rb.Read(make([]byte, 4))
		require.Equal(t, 0, n)
		require.Equal(t, io.EOF, err)
	})
}
