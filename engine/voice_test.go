package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceLifecycle(t *testing.T) {
	out := &fakeOutput{}
	v := newVoice(KindBuffer, out)
	assert.Equal(t, StateIdle, v.State())

	v.rearm()
	assert.Equal(t, StateInitializing, v.State())

	require.NoError(t, v.play())
	assert.Equal(t, StatePlaying, v.State())

	v.pause()
	assert.Equal(t, StatePaused, v.State())

	v.resume()
	assert.Equal(t, StatePlaying, v.State())

	v.stop(false)
	assert.Equal(t, StateFadingOut, v.State())
}

func TestVoicePlayOutsideInitializingIsNoOp(t *testing.T) {
	out := &fakeOutput{}
	v := newVoice(KindBuffer, out)
	v.rearm()
	require.NoError(t, v.play())

	// Playing again must not restart the output.
	require.NoError(t, v.play())
	assert.Equal(t, StatePlaying, v.State())

	v.stop(true)
	require.NoError(t, v.play())
	assert.Equal(t, StateStopped, v.State(), "play on a stopped voice is a no-op")
}

func TestVoicePauseResumeNoOps(t *testing.T) {
	out := &fakeOutput{}
	v := newVoice(KindBuffer, out)
	v.rearm()

	v.pause()
	assert.Equal(t, StateInitializing, v.State(), "pause before playing is a no-op")

	require.NoError(t, v.play())
	v.resume()
	assert.Equal(t, StatePlaying, v.State(), "resume while playing is a no-op")
}

func TestVoiceStopTransitions(t *testing.T) {
	tests := []struct {
		name      string
		prep      func(v *Voice)
		immediate bool
		want      VoiceState
	}{
		{
			name:      "immediate stop from playing",
			prep:      func(v *Voice) { _ = v.play() },
			immediate: true,
			want:      StateStopped,
		},
		{
			name:      "faded stop from playing",
			prep:      func(v *Voice) { _ = v.play() },
			immediate: false,
			want:      StateFadingOut,
		},
		{
			name:      "faded stop from paused",
			prep:      func(v *Voice) { _ = v.play(); v.pause() },
			immediate: false,
			want:      StateFadingOut,
		},
		{
			name:      "initializing always stops immediately",
			prep:      func(v *Voice) {},
			immediate: false,
			want:      StateStopped,
		},
		{
			name:      "immediate stop cancels a fade",
			prep:      func(v *Voice) { _ = v.play(); v.stop(false) },
			immediate: true,
			want:      StateStopped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVoice(KindBuffer, &fakeOutput{})
			v.rearm()
			tt.prep(v)
			v.stop(tt.immediate)
			assert.Equal(t, tt.want, v.State())
		})
	}
}

func TestVoiceFadedStopWhileFadingIsNoOp(t *testing.T) {
	out := &fakeOutput{}
	v := newVoice(KindBuffer, out)
	v.rearm()
	require.NoError(t, v.play())

	v.stop(false)
	v.stop(false)
	assert.Equal(t, StateFadingOut, v.State())
	assert.Len(t, out.stopCalls(), 1, "a second faded stop must not reach the output")
}

func TestVoiceStartFailureStaysInitializing(t *testing.T) {
	out := &fakeOutput{startErr: errBroken}
	v := newVoice(KindBuffer, out)
	v.rearm()

	require.Error(t, v.play())
	assert.Equal(t, StateInitializing, v.State())
}

func TestVoiceDetachHooksStack(t *testing.T) {
	v := newVoice(KindBuffer, &fakeOutput{})

	var calls []int
	v.onDetach(func() { calls = append(calls, 1) })
	v.onDetach(func() { calls = append(calls, 2) })

	require.NotNil(t, v.detached)
	v.detached()
	assert.Equal(t, []int{1, 2}, calls, "hooks fire in registration order")

	v.reset()
	assert.Nil(t, v.detached, "reset must drop detach hooks")
}

func TestVoiceStateStrings(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fading_out", StateFadingOut.String())
	assert.Equal(t, "stream", KindStream.String())
	assert.Equal(t, "buffer", KindBuffer.String())
}
