package infinistream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

type (
	// Checkpoint is an opaque, serializable token capturing an iterator's
	// position, see Iterator. Each stage's checkpoint is a tagged record;
	// the composite checkpoint of a pipeline is structurally the checkpoint
	// of its tail, which recursively embeds its upstream's, mirroring the
	// pipeline's construction tree.
	//
	// Tag returns a stable identifier for the checkpoint type, used by the
	// wire format and for cross-version diagnostics.
	Checkpoint interface {
		Tag() string
	}

	// Nested wraps an upstream checkpoint embedded within another stage's
	// checkpoint, handling the tagged envelope on (de)serialization.
	Nested struct {
		Checkpoint
	}

	checkpointEnvelope struct {
		Tag  string          `json:"tag"`
		Data json.RawMessage `json:"data"`
	}
)

var checkpointRegistry = struct {
	mu        sync.RWMutex
	factories map[string]func() Checkpoint
}{factories: make(map[string]func() Checkpoint)}

func init() {
	RegisterCheckpoint(func() Checkpoint { return new(ItemsState) })
	RegisterCheckpoint(func() Checkpoint { return new(PermutationState) })
	RegisterCheckpoint(func() Checkpoint { return new(FlattenState) })
	RegisterCheckpoint(func() Checkpoint { return new(ZipState) })
	RegisterCheckpoint(func() Checkpoint { return new(WindowState) })
	RegisterCheckpoint(func() Checkpoint { return new(BucketState) })
	RegisterCheckpoint(func() Checkpoint { return new(PrefetchState) })
	RegisterCheckpoint(func() Checkpoint { return new(RandomState) })
	// generic stages default to the instantiations used by the chunked
	// dataset composition (shuffle of strings) and by NewSamplingRandomMap
	// (generator state); re-register to swap in others
	RegisterCheckpoint(func() Checkpoint { return new(ShuffleState[string]) })
	RegisterCheckpoint(func() Checkpoint { return new(RecurrentState[[]byte]) })
}

// RegisterCheckpoint registers a factory for deserializing checkpoints, keyed
// by the tag of the value it produces. Registering a factory for an existing
// tag replaces it, e.g. to swap the concrete instantiation used for a generic
// stage's checkpoint.
func RegisterCheckpoint(factory func() Checkpoint) {
	tag := factory().Tag()
	checkpointRegistry.mu.Lock()
	defer checkpointRegistry.mu.Unlock()
	checkpointRegistry.factories[tag] = factory
}

// MarshalCheckpoint encodes a checkpoint, including its nested upstream
// checkpoints, as JSON. A nil checkpoint (the initial position) encodes as
// null. Item types held within checkpoints (e.g. reservoir buffers) must be
// JSON-marshalable for the wire format to apply; the in-memory checkpoint
// values themselves carry no such restriction.
func MarshalCheckpoint(checkpoint Checkpoint) ([]byte, error) {
	if checkpoint == nil {
		return []byte(`null`), nil
	}
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return nil, fmt.Errorf(`infinistream: marshal %q checkpoint: %w`, checkpoint.Tag(), err)
	}
	return json.Marshal(checkpointEnvelope{Tag: checkpoint.Tag(), Data: data})
}

// UnmarshalCheckpoint decodes a checkpoint previously encoded by
// MarshalCheckpoint, using the registered factory for its tag.
func UnmarshalCheckpoint(data []byte) (Checkpoint, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte(`null`)) {
		return nil, nil
	}
	var envelope checkpointEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf(`infinistream: unmarshal checkpoint envelope: %w`, err)
	}
	checkpointRegistry.mu.RLock()
	factory := checkpointRegistry.factories[envelope.Tag]
	checkpointRegistry.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf(`infinistream: unregistered checkpoint tag %q`, envelope.Tag)
	}
	checkpoint := factory()
	if err := json.Unmarshal(envelope.Data, checkpoint); err != nil {
		return nil, fmt.Errorf(`infinistream: unmarshal %q checkpoint: %w`, envelope.Tag, err)
	}
	return checkpoint, nil
}

func (x Nested) MarshalJSON() ([]byte, error) {
	return MarshalCheckpoint(x.Checkpoint)
}

func (x *Nested) UnmarshalJSON(data []byte) error {
	checkpoint, err := UnmarshalCheckpoint(data)
	if err != nil {
		return err
	}
	x.Checkpoint = checkpoint
	return nil
}
