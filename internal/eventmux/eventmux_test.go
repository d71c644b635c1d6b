package eventmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRecognizesClosedGrammar(t *testing.T) {
	cases := []struct {
		line string
		kind EventKind
	}{
		{"[Feature #12] writing handler", KindFeatureActivity},
		{"Started coding agent for feature #12", KindSpawned},
		{"Feature #12 coding completed", KindTerminal},
		{"Feature #12 testing failed", KindTerminal},
		{"At max capacity", KindOrchestratorState},
		{"Spawning loop: 3 ready, 2 slots", KindOrchestratorState},
	}
	for _, c := range cases {
		ev, ok := Parse(c.line)
		require.True(t, ok, c.line)
		require.Equal(t, c.kind, ev.Kind, c.line)
	}
}

func TestParseRejectsUnknownLines(t *testing.T) {
	_, ok := Parse("just a normal log line")
	require.False(t, ok)
}

func TestMuxPublishFansOutToBothSubscriberClasses(t *testing.T) {
	m := New()
	raw := m.SubscribeRaw()
	events := m.SubscribeEvents()

	m.Publish("[Feature #3] starting")
	m.Publish("irrelevant line")

	require.Equal(t, "[Feature #3] starting", <-raw)
	require.Equal(t, "irrelevant line", <-raw)

	ev := <-events
	require.Equal(t, KindFeatureActivity, ev.Kind)
	require.Equal(t, int64(3), ev.FeatureID)

	select {
	case <-events:
		t.Fatal("unexpected second structured event")
	default:
	}
}

func TestMuxPublishDropsOnFullQueueRatherThanBlocking(t *testing.T) {
	m := New()
	_ = m.SubscribeRaw() // unread subscriber; queue will fill and then drop.

	for i := 0; i < rawBufferSize+10; i++ {
		m.Publish("line")
	}
	// Publish must return without blocking even though the subscriber
	// never drained its channel — the test completing at all proves it.
}
