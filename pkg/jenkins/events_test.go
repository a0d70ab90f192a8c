package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.subjects = append(c.subjects, subj)
	c.payloads = append(c.payloads, data)

	return c.err
}

func TestNATSPublisher_Publish(t *testing.T) {
	t.Parallel()

	conn := &recordingConn{}
	pub := NewNATSPublisher(conn, "")

	event := Event{
		Kind:   EventJob,
		Action: ActionCreated,
		Name:   "J1",
		URL:    "http://ci/job/J1/",
		Time:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, pub.Publish(context.Background(), event))
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "jenkins.job.created", conn.subjects[0])

	var decoded Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.Equal(t, event, decoded)
}

func TestNATSPublisher_Errors(t *testing.T) {
	t.Parallel()

	conn := &recordingConn{err: errors.New("nats: connection closed")}
	pub := NewNATSPublisher(conn, "ci.events")

	err := pub.Publish(context.Background(), Event{Kind: EventNode, Action: ActionToggled})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ci.events.node.toggled")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pub.Publish(ctx, Event{Kind: EventNode, Action: ActionToggled})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, conn.subjects, 1)
}

func TestInvocation_Transition(t *testing.T) {
	t.Parallel()

	inv := NewInvocation("J1")
	inv.Transition(Requested)
	inv.Transition(Requested)
	inv.Transition(Queued)
	inv.Transition(Completed)

	assert.Equal(t, []InvocationState{NotRequested, Requested, Queued, Completed}, inv.History)
	assert.True(t, inv.Visited(Queued))
	assert.False(t, inv.Visited(Running))
	assert.True(t, inv.State.Terminal())
}
