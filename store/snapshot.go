package store

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/Hyomoto/tinder/tinder"
)

func cborMarshalSnapshot(snap tinder.Snapshot) ([]byte, error) {
	return cbor.Marshal(snap)
}

func cborUnmarshalSnapshot(data []byte) (tinder.Snapshot, error) {
	var snap tinder.Snapshot
	err := cbor.Unmarshal(data, &snap)
	return snap, err
}
