package json

import (
	"testing"

	"github.com/drakos74/planet-vision/internal/storage"
	"github.com/stretchr/testify/assert"
)

type state struct {
	Epoch int       `json:"epoch"`
	Loss  []float64 `json:"loss"`
}

func TestBlobStorage_StoreLoad(t *testing.T) {

	store := NewJsonBlob("checkpoints", "test-run").WithRoot(t.TempDir())

	key := storage.Key{
		Name:  "amazon",
		Hash:  3,
		Label: "network",
	}

	in := state{
		Epoch: 3,
		Loss:  []float64{0.9, 0.5, 0.2},
	}

	assert.NoError(t, store.Store(key, in))

	var out state
	assert.NoError(t, store.Load(key, &out))
	assert.Equal(t, in, out)
}

func TestBlobShard_RoundTrip(t *testing.T) {

	root := t.TempDir()
	shard := BlobShard(root, "checkpoints")

	store, err := shard("amazon")
	assert.NoError(t, err)

	key := storage.Key{Name: "amazon", Hash: 1, Label: "network"}
	assert.NoError(t, store.Store(key, state{Epoch: 1}))

	reopened, err := shard("amazon")
	assert.NoError(t, err)
	var out state
	assert.NoError(t, reopened.Load(key, &out))
	assert.Equal(t, 1, out.Epoch)
}

func TestBlobStorage_LoadMissing(t *testing.T) {

	store := NewJsonBlob("checkpoints", "test-run").WithRoot(t.TempDir())

	var out state
	err := store.Load(storage.Key{Name: "amazon", Hash: 42, Label: "network"}, &out)
	assert.Error(t, err)
	assert.ErrorIs(t, err, storage.NotFoundErr)
}
