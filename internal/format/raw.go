package format

import (
	"fmt"

	"github.com/riftforge/assets/internal/core/asset"
)

// RawFormat passes bytes through untouched, for opaque payloads and tests.
type RawFormat struct{}

func (RawFormat) Name() string { return "raw" }

func (RawFormat) Import(name string, raw []byte) (any, error) {
	// Copy: the source may hand out a buffer it reuses.
	return append([]byte(nil), raw...), nil
}

// Blob is the loaded asset for raw payloads.
type Blob struct {
	Data []byte
}

func ConvertBlob(data any) (asset.Outcome[Blob], error) {
	b, ok := data.([]byte)
	if !ok {
		return asset.Outcome[Blob]{}, fmt.Errorf("raw: unexpected data %T", data)
	}
	return asset.Ready(Blob{Data: b}), nil
}
