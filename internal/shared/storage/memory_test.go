package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	key, err := s.Put(ctx, "u1/a.pdf", strings.NewReader("one"), 3, PutOptions{CacheControl: "3600"})
	require.NoError(t, err)
	assert.Equal(t, "u1/a.pdf", key)

	_, err = s.Put(ctx, "u1/a.pdf", strings.NewReader("two"), 3, PutOptions{})
	assert.ErrorIs(t, err, ErrObjectExists)

	_, err = s.Put(ctx, "u1/a.pdf", strings.NewReader("two"), 3, PutOptions{Overwrite: true})
	require.NoError(t, err)

	obj, ok := s.Object("u1/a.pdf")
	require.True(t, ok)
	assert.Equal(t, "two", string(obj.Data))
}

func TestMemoryStore_Move(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Put(ctx, "u1/a.pdf", strings.NewReader("x"), 1, PutOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Move(ctx, "u1/a.pdf", "u1/42/a.pdf"))
	assert.Equal(t, []string{"u1/42/a.pdf"}, s.Keys())

	err = s.Move(ctx, "u1/a.pdf", "u1/43/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Put(ctx, "k", strings.NewReader("x"), 1, PutOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.Empty(t, s.Keys())
}

func TestMemoryStore_Get(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Put(ctx, "k", strings.NewReader("hello"), 5, PutOptions{})
	require.NoError(t, err)

	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()

	_, err := s.Put(ctx, "k", strings.NewReader("x"), 1, PutOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Keys())
}
