package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wetland-guardian/cienaga-classifier/internal/raster"
)

func grid(values ...float32) raster.Grid {
	return raster.Grid{Width: len(values), Height: 1, Data: values}
}

func TestSignatureRange(t *testing.T) {
	low, high := DefaultSignatures[0].Range()
	assert.InDelta(t, 0.0797, low, 1e-4)
	assert.InDelta(t, 0.1480, high, 1e-4)
}

func TestGenerateOnlyNIRInRange(t *testing.T) {
	bands := raster.BandSet{
		raster.NIR:   grid(0.05, 0.09, 0.11, 0.14, 0.20),
		raster.SWIR1: grid(0.5, 0.5, 0.5, 0.5, 0.5),
		raster.SWIR2: grid(0.0, 0.0, 0.0, 0.0, 0.0),
	}

	mask, err := Generate(bands, DefaultSignatures)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true, true, true, false}, mask.Data)
	assert.Equal(t, []raster.BandName{raster.NIR, raster.SWIR1, raster.SWIR2}, mask.Bands)
	assert.Equal(t, 3, mask.Count())
}

func TestGenerateIsUnionAcrossBands(t *testing.T) {
	bands := raster.BandSet{
		raster.NIR:   grid(0.11, 0.5, 0.5),
		raster.SWIR1: grid(0.5, 0.09, 0.5),
	}

	mask, err := Generate(bands, DefaultSignatures)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false}, mask.Data)
	assert.Equal(t, []raster.BandName{raster.NIR, raster.SWIR1}, mask.Bands)
}

func TestGenerateBoundsAreInclusive(t *testing.T) {
	sig := Signature{Band: raster.NIR, Value: 0.1}
	low, high := sig.Range()
	bands := raster.BandSet{raster.NIR: grid(low, high)}

	mask, err := Generate(bands, []Signature{sig})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, mask.Data)
}

func TestGenerateWithoutSignatureBands(t *testing.T) {
	bands := raster.BandSet{
		raster.Blue: grid(0.1),
		raster.Red:  grid(0.1),
	}

	_, err := Generate(bands, DefaultSignatures)
	assert.ErrorIs(t, err, ErrNoSignatureBands)
}
