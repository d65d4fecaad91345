package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSaga_UnwindsInReverse(t *testing.T) {
	sg := newSaga(zap.NewNop())
	var order []string
	for _, name := range []string{"upload", "insert", "relocate"} {
		sg.commit(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	assert.Equal(t, []string{"upload", "insert", "relocate"}, sg.committed())

	sg.unwind(context.Background())
	assert.Equal(t, []string{"relocate", "insert", "upload"}, order)
	assert.Empty(t, sg.committed())

	sg.unwind(context.Background())
	assert.Len(t, order, 3, "second unwind is a no-op")
}

func TestSaga_ContinuesPastFailures(t *testing.T) {
	sg := newSaga(zap.NewNop())
	var ran []string
	sg.commit("first", func(ctx context.Context) error {
		ran = append(ran, "first")
		return nil
	})
	sg.commit("panics", func(ctx context.Context) error {
		ran = append(ran, "panics")
		panic("boom")
	})
	sg.commit("fails", func(ctx context.Context) error {
		ran = append(ran, "fails")
		return errors.New("delete failed")
	})

	assert.NotPanics(t, func() { sg.unwind(context.Background()) })
	assert.Equal(t, []string{"fails", "panics", "first"}, ran)
}

func TestSaga_IgnoresCallerCancellation(t *testing.T) {
	sg := newSaga(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	sg.commit("delete_request", func(ctx context.Context) error {
		seen = ctx.Err()
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	sg.unwind(ctx)
	assert.NoError(t, seen)
}
