package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToSession(t *testing.T) {
	hub := NewHub(nil)
	a := hub.Subscribe("s1")
	b := hub.Subscribe("s2")
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.PublishImportState("s1", ImportState{State: "uploading", Busy: true, FileName: "staff.xlsx"})

	require.Len(t, a.Events, 1)
	ev := <-a.Events
	assert.Equal(t, EventImportState, ev.Type)
	assert.JSONEq(t, `{"state":"uploading","busy":true,"file_name":"staff.xlsx"}`, ev.Data)
	assert.Empty(t, b.Events)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	c := hub.Subscribe("s1")
	defer hub.Unsubscribe(c)

	for i := 0; i < bufferSize+5; i++ {
		hub.Send("s1", Event{Type: "x"})
	}
	assert.Len(t, c.Events, bufferSize)
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	c1 := hub.Subscribe("s1")
	c2 := hub.Subscribe("s1")
	assert.Equal(t, 2, hub.Streams("s1"))

	hub.Unsubscribe(c1)
	hub.Unsubscribe(c1)
	assert.Equal(t, 1, hub.Streams("s1"))
	_, open := <-c1.Events
	assert.False(t, open)

	hub.Unsubscribe(c2)
	assert.Equal(t, 0, hub.Streams("s1"))
	hub.Send("s1", Event{Type: "x"})
}
