// Package infinistream implements composable, checkpointable iterators for
// randomized streaming of training corpora too large to fit in memory.
//
// Every stage implements [Iterator], a stateful producer exposing Next,
// GetState, and SetState. A checkpoint captured between two Next calls is an
// opaque serializable value; restoring it onto a freshly constructed pipeline
// of identical configuration reproduces the exact suffix the original would
// have produced, without replaying history. Pipelines are built by value
// composition - each stage owns its upstream - and the composite checkpoint
// is structurally the checkpoint of the tail, recursively embedding its
// upstream's.
//
// The head of a typical pipeline is [NewInfinitePermutation], which owns a
// finite in-memory set (e.g. chunk file paths) and reshuffles it every pass,
// with constant-size checkpoints and built-in sharding for distributed
// loading. [NewChunkedDataset] wires the canonical composition: an infinite
// permutation of gzipped chunk files, flattened into lines, reservoir
// shuffled, and optionally transformed.
package infinistream
