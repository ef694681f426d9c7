package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKernelError(t *testing.T) {
	err := &Error{
		Module:  "foo",
		Message: "error message",
	}

	require.Equal(t, err.Message, err.Error())
	require.Equal(t, "[foo] error message", err.String())
}
