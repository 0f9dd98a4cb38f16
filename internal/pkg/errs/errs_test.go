//go:build unit

package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	code int
}

func (e *codedError) Error() string {
	return fmt.Sprintf("coded error %d", e.code)
}

func TestMark(t *testing.T) {
	sentinel := errs.New("voucher not found")

	t.Run("errors.Is sees the mark", func(t *testing.T) {
		err := errs.Mark(errs.New("row missing"), sentinel)
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("errors.Is still sees the cause chain", func(t *testing.T) {
		cause := errs.New("connection reset")
		err := errs.Mark(errs.Wrap(cause, "query failed"), sentinel)
		require.ErrorIs(t, err, cause)
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("errors.As reaches typed causes through the mark", func(t *testing.T) {
		err := errs.Mark(errs.Wrap(&codedError{code: 42}, "lookup failed"), sentinel)

		var coded *codedError
		require.ErrorAs(t, err, &coded)
		assert.Equal(t, 42, coded.code)
	})

	t.Run("nested marks all stay visible", func(t *testing.T) {
		inner := errs.New("inner reference")
		err := errs.Mark(errs.Mark(errs.New("root"), inner), sentinel)
		require.ErrorIs(t, err, inner)
		require.ErrorIs(t, err, sentinel)
	})

	t.Run("unrelated sentinels do not match", func(t *testing.T) {
		other := errs.New("something else")
		err := errs.Mark(errs.New("root"), sentinel)
		assert.False(t, errors.Is(err, other))
	})

	t.Run("nil cause yields the mark itself", func(t *testing.T) {
		assert.Same(t, sentinel, errs.Mark(nil, sentinel))
	})

	t.Run("message stays that of the cause", func(t *testing.T) {
		err := errs.Mark(errs.New("row missing"), sentinel)
		assert.Equal(t, "row missing", err.Error())
	})
}
