package mock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/il"
	"pipelined.dev/il/mock"
)

func TestConsumer(t *testing.T) {
	testOk := func(chunk, calls int) func(*testing.T) {
		return func(t *testing.T) {
			c := &mock.Consumer{Chunk: chunk}
			b := &il.Buffer{Payload: []byte{1, 2, 3, 4}, Filled: 4}
			for b.Filled > 0 {
				assert.NoError(t, c.Consume(b))
			}
			assert.Equal(t, calls, c.Calls())
			assert.Equal(t, []byte{1, 2, 3, 4}, c.Data())
			assert.Equal(t, 4, b.Offset)
		}
	}
	t.Run("all at once", testOk(0, 1))
	t.Run("by chunks", testOk(3, 2))
	t.Run("fail", func(t *testing.T) {
		c := &mock.Consumer{Fail: true}
		assert.ErrorIs(t, c.Consume(&il.Buffer{Payload: []byte{1}, Filled: 1}), mock.ErrMock)
	})
}

func TestProducer(t *testing.T) {
	p := &mock.Producer{Limit: 2, Size: 2, Value: 7}
	b := &il.Buffer{Payload: make([]byte, 4)}

	assert.NoError(t, p.Produce(b))
	assert.Equal(t, 2, b.Filled)
	assert.False(t, b.Has(il.FlagEOS))
	assert.Equal(t, []byte{7, 7}, b.Bytes())

	b = &il.Buffer{Payload: make([]byte, 4)}
	assert.NoError(t, p.Produce(b))
	assert.True(t, b.Has(il.FlagEOS))

	b = &il.Buffer{Payload: make([]byte, 4)}
	assert.NoError(t, p.Produce(b))
	assert.Equal(t, 0, b.Filled)
	assert.True(t, b.Has(il.FlagEOS))
	assert.Equal(t, 2, p.Produced())
	assert.Equal(t, 3, p.Calls())
}

func TestCopier(t *testing.T) {
	f := &mock.Copier{}
	in := &il.Buffer{Payload: []byte{1, 2, 3}, Filled: 3}
	out := &il.Buffer{Payload: make([]byte, 2)}
	assert.NoError(t, f.Transform(in, out))
	assert.Equal(t, 1, in.Filled)
	assert.Equal(t, []byte{1, 2}, out.Bytes())
}

func TestHold(t *testing.T) {
	h := mock.NewHold()
	c := &mock.Consumer{Hold: h}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Consume(&il.Buffer{Payload: []byte{1}, Filled: 1})
	}()
	<-h.Entered()
	select {
	case <-done:
		t.Fatal("consume is not held")
	default:
	}
	h.Release()
	<-done
	h.Release()
}
