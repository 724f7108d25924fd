package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rollstate/internal/motion"
	"github.com/banshee-data/rollstate/internal/testutil"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	token        *fakeToken
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.token == nil {
		return &fakeToken{}
	}
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestTracker_Observe(t *testing.T) {
	var tr Tracker
	assert.Equal(t, motion.LabelUnknown, tr.Last())

	var got []Transition
	steps := []struct {
		millis int64
		label  motion.Label
	}{
		{0, motion.LabelOnFace},
		{10, motion.LabelOnFace},
		{20, motion.LabelRolling},
		{30, motion.LabelRolling},
		{40, motion.LabelOnFace},
	}
	for _, s := range steps {
		if change, ok := tr.Observe(s.millis, s.label); ok {
			got = append(got, change)
		}
	}

	want := []Transition{
		{Millis: 0, From: motion.LabelUnknown, To: motion.LabelOnFace},
		{Millis: 20, From: motion.LabelOnFace, To: motion.LabelRolling},
		{Millis: 40, From: motion.LabelRolling, To: motion.LabelOnFace},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, motion.LabelOnFace, tr.Last())
}

func TestTracker_FirstUnknownIsSilent(t *testing.T) {
	var tr Tracker
	_, ok := tr.Observe(0, motion.LabelUnknown)
	assert.False(t, ok)

	change, ok := tr.Observe(5, motion.LabelHandling)
	require.True(t, ok)
	assert.Equal(t, motion.LabelUnknown, change.From)
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := newMQTTPublisher(client, "", 0)
	assert.Equal(t, DefaultTopic, p.Topic())

	require.NoError(t, p.Publish(Transition{Millis: 20, From: motion.LabelOnFace, To: motion.LabelRolling}))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, DefaultTopic, msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.True(t, msg.retained)
	assert.JSONEq(t, `{"millis":20,"from":"OnFace","to":"Rolling"}`, string(msg.payload))

	var decoded Transition
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, motion.LabelRolling, decoded.To)

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTPublisher_Errors(t *testing.T) {
	broken := errors.New("not connected")
	p := newMQTTPublisher(&fakeClient{token: &fakeToken{err: broken}}, "dice/state", time.Second)
	assert.ErrorIs(t, p.Publish(Transition{To: motion.LabelOnFace}), broken)

	p = newMQTTPublisher(&fakeClient{token: &fakeToken{timeout: true}}, "dice/state", time.Second)
	err := p.Publish(Transition{To: motion.LabelOnFace})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestLogPublisher(t *testing.T) {
	lines := testutil.CaptureLogs(t)

	var p Publisher = LogPublisher{}
	require.NoError(t, p.Publish(Transition{Millis: 1, From: motion.LabelOnFace, To: motion.LabelHandling}))
	require.NoError(t, p.Close())
	assert.Len(t, *lines, 1)

	p = NopPublisher{}
	require.NoError(t, p.Publish(Transition{}))
	require.NoError(t, p.Close())
}
