package pubsub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gregoryjjb/fireside/pubsub"
)

func TestPubsub(t *testing.T) {
	ps := pubsub.New[string]()

	_, ch1 := ps.Subscribe()
	id2, ch2 := ps.Subscribe()

	assert.Equal(t, 2, ps.Publish("a"))
	assert.Equal(t, "a", <-ch1)
	assert.Equal(t, "a", <-ch2)

	ps.Unsubscribe(id2)
	_, open := <-ch2
	assert.False(t, open, "unsubscribed channel should be closed")

	assert.Equal(t, 1, ps.Publish("b"))
	assert.Equal(t, "b", <-ch1)
	assert.Equal(t, 1, ps.Len())
}

func TestPubsubDropsWhenFull(t *testing.T) {
	ps := pubsub.NewBuffered[int](1)
	_, ch := ps.Subscribe()

	assert.Equal(t, 1, ps.Publish(1))
	assert.Equal(t, 0, ps.Publish(2), "second value should be dropped")

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestPubsubClose(t *testing.T) {
	ps := pubsub.New[int]()
	_, ch := ps.Subscribe()

	ps.Close()

	_, open := <-ch
	require.False(t, open)
	assert.Equal(t, 0, ps.Publish(1))

	_, late := ps.Subscribe()
	_, open = <-late
	assert.False(t, open, "subscribing after close yields a closed channel")
}
