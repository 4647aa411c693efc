package raster

// BandName is the canonical name of a spectral band.
type BandName string

const (
	Blue  BandName = "blue"
	Green BandName = "green"
	Red   BandName = "red"
	NIR   BandName = "nir"
	SWIR1 BandName = "swir1"
	SWIR2 BandName = "swir2"
)

// ReflectanceScale converts raw sensor values into surface reflectance.
const ReflectanceScale = 10000.0

// BandRule maps a canonical name to an absolute 1-based band index. The rule applies only
// when the raster carries at least MinBandCount bands.
type BandRule struct {
	Name         BandName
	MinBandCount int
	Index        int
}

// BandLayout is the ordered sensor layout table used to name raster bands.
type BandLayout []BandRule

// DefaultLayout is the multispectral layout the classifier was trained with. Indices are
// absolute positions, not sequential: nir lives in band 7, swir1 in band 9.
var DefaultLayout = BandLayout{
	{Name: Blue, MinBandCount: 1, Index: 1},
	{Name: Green, MinBandCount: 2, Index: 2},
	{Name: Red, MinBandCount: 3, Index: 3},
	{Name: NIR, MinBandCount: 7, Index: 7},
	{Name: SWIR1, MinBandCount: 9, Index: 9},
	{Name: SWIR2, MinBandCount: 10, Index: 10},
}

// Resolve returns the name to band index mapping available for a raster with bandCount bands.
func (l BandLayout) Resolve(bandCount int) map[BandName]int {
	available := make(map[BandName]int, len(l))
	for _, rule := range l {
		if bandCount >= rule.MinBandCount && rule.Index <= bandCount {
			available[rule.Name] = rule.Index
		}
	}
	return available
}

// BandSet holds normalized bands keyed by canonical name. Names whose rule is not met are absent.
type BandSet map[BandName]Grid

func (b BandSet) Has(name BandName) bool {
	_, ok := b[name]
	return ok
}
