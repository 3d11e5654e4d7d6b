package infinistream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCheckpoint_nil(t *testing.T) {
	data, err := MarshalCheckpoint(nil)
	require.NoError(t, err)
	require.Equal(t, `null`, string(data))
	checkpoint, err := UnmarshalCheckpoint(data)
	require.NoError(t, err)
	require.Nil(t, checkpoint)
}

func TestMarshalCheckpoint_roundTripNested(t *testing.T) {
	state := &FlattenState{
		Input: Nested{&PermutationState{RNG: []byte{1, 2, 3}, ItemCount: 7}},
		Index: 42,
	}
	data, err := MarshalCheckpoint(state)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"tag":"flatten"`), `envelope tag missing: %s`, data)
	assert.True(t, strings.Contains(string(data), `"tag":"permute"`), `nested envelope tag missing: %s`, data)

	checkpoint, err := UnmarshalCheckpoint(data)
	require.NoError(t, err)
	restored, ok := checkpoint.(*FlattenState)
	require.True(t, ok, `unexpected type %T`, checkpoint)
	require.Equal(t, 42, restored.Index)
	nested, ok := restored.Input.Checkpoint.(*PermutationState)
	require.True(t, ok, `unexpected nested type %T`, restored.Input.Checkpoint)
	assert.Equal(t, []byte{1, 2, 3}, nested.RNG)
	assert.Equal(t, 7, nested.ItemCount)
}

func TestMarshalCheckpoint_emptyNested(t *testing.T) {
	state := &FlattenState{Index: 1}
	data, err := MarshalCheckpoint(state)
	require.NoError(t, err)
	checkpoint, err := UnmarshalCheckpoint(data)
	require.NoError(t, err)
	restored := checkpoint.(*FlattenState)
	assert.Nil(t, restored.Input.Checkpoint)
	assert.Equal(t, 1, restored.Index)
}

func TestMarshalCheckpoint_shuffleBufferSlots(t *testing.T) {
	a, c := `alpha`, `charlie`
	state := &ShuffleState[string]{
		Input:  Nested{&ItemsState{Consumed: 3}},
		Buffer: []*string{&a, nil, &c},
		RNG:    []byte{9, 9},
	}
	data, err := MarshalCheckpoint(state)
	require.NoError(t, err)
	checkpoint, err := UnmarshalCheckpoint(data)
	require.NoError(t, err)
	restored := checkpoint.(*ShuffleState[string])
	require.Len(t, restored.Buffer, 3)
	require.NotNil(t, restored.Buffer[0])
	assert.Equal(t, `alpha`, *restored.Buffer[0])
	assert.Nil(t, restored.Buffer[1])
	require.NotNil(t, restored.Buffer[2])
	assert.Equal(t, `charlie`, *restored.Buffer[2])
}

func TestUnmarshalCheckpoint_unregisteredTag(t *testing.T) {
	_, err := UnmarshalCheckpoint([]byte(`{"tag":"no-such-stage","data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no-such-stage`)
}
