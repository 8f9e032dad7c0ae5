package ifd

import (
	"errors"
	"fmt"
	"math"

	"github.com/echoflaresat/gotiff/compression"
	"github.com/echoflaresat/gotiff/fieldtype"
	"github.com/echoflaresat/gotiff/fillorder"
	"github.com/echoflaresat/gotiff/photometric"
	"github.com/echoflaresat/gotiff/planarconfig"
	"github.com/echoflaresat/gotiff/predictor"
	"github.com/echoflaresat/gotiff/sampleformat"
	"github.com/echoflaresat/gotiff/tifftag"
)

// Sentinel errors for the small set of IFD-level format/bounds failures
// (spec §7 taxonomy: Format, Bounds).
var (
	ErrFrozen               = errors.New("ifd: directory is frozen for writing")
	ErrOddOffset            = errors.New("ifd: file offset must be even")
	ErrUnequalBitsPerSample = errors.New("ifd: BitsPerSample values are not all equal")
	ErrOverflow             = errors.New("ifd: size computation overflows 31-bit bound")
	ErrMissingTag           = errors.New("ifd: required tag is missing")
)

// IFD is an unordered collection of typed tag→value entries describing one
// image, plus the file-offset bookkeeping needed across its read/write
// lifetime (spec §3, §4.C).
//
// An IFD carries a file offset of origin (when read from a stream) and a
// file offset staged for writing; these are mutually exclusive across the
// lifetime of one IFD value; a freshly constructed IFD has neither.
//
// Three in-memory-only pseudo-tags — LittleEndian, BigTIFF and Reuse — ride
// along on the struct itself rather than as directory entries, so they can
// never accidentally be serialised (spec §3).
type IFD struct {
	entries map[tifftag.Tag]*Entry

	fileOffsetOrigin  uint64
	hasOrigin         bool
	fileOffsetWriting uint64
	hasWriting        bool
	frozen            bool

	// LittleEndian and BigTIFF pseudo-tags record which stream this
	// directory was read from or is destined for; Reuse marks a directory
	// a writer may overwrite in place rather than append fresh.
	LittleEndian bool
	BigTIFF      bool
	Reuse        bool
}

// New returns an empty IFD.
func New() *IFD {
	return &IFD{entries: make(map[tifftag.Tag]*Entry)}
}

// Contains reports whether tag has an entry in this directory.
func (d *IFD) Contains(tag tifftag.Tag) bool {
	_, ok := d.entries[tag]
	return ok
}

// Get returns the entry for tag, if present.
func (d *IFD) Get(tag tifftag.Tag) (*Entry, bool) {
	e, ok := d.entries[tag]
	return e, ok
}

// Set installs (or replaces) an entry. It returns ErrFrozen if the
// directory has already been frozen for writing.
func (d *IFD) Set(e *Entry) error {
	if d.frozen {
		return ErrFrozen
	}
	d.entries[e.Tag] = e
	return nil
}

// Remove deletes the entry for tag, if any. It returns ErrFrozen if the
// directory has already been frozen for writing.
func (d *IFD) Remove(tag tifftag.Tag) error {
	if d.frozen {
		return ErrFrozen
	}
	delete(d.entries, tag)
	return nil
}

// Tags returns every tag present in the directory, unordered.
func (d *IFD) Tags() []tifftag.Tag {
	out := make([]tifftag.Tag, 0, len(d.entries))
	for t := range d.entries {
		out = append(out, t)
	}
	return out
}

// FileOffsetOrigin returns the offset this directory was read from, if any.
func (d *IFD) FileOffsetOrigin() (uint64, bool) { return d.fileOffsetOrigin, d.hasOrigin }

// SetFileOffsetOrigin records where this directory was read from. Used by
// the directory package while parsing a chain.
func (d *IFD) SetFileOffsetOrigin(offset uint64) { d.fileOffsetOrigin = offset; d.hasOrigin = true }

// FileOffsetForWriting returns the offset staged for this directory's next
// write, if any.
func (d *IFD) FileOffsetForWriting() (uint64, bool) { return d.fileOffsetWriting, d.hasWriting }

// SetFileOffsetForWriting stages the offset this directory will be written
// at. The offset must be even, per the on-disk invariant that every IFD
// begins at an even file position.
func (d *IFD) SetFileOffsetForWriting(offset uint64) error {
	if offset%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrOddOffset, offset)
	}
	d.fileOffsetWriting = offset
	d.hasWriting = true
	return nil
}

// FreezeForWriting marks the directory immutable: further Set/Remove calls
// return ErrFrozen. Callers should freeze once the directory's tags and
// positioning are final and it is about to be serialised, so that later
// accidental mutation is caught rather than silently corrupting an
// already-written file (spec §9).
func (d *IFD) FreezeForWriting() { d.frozen = true }

// Frozen reports whether FreezeForWriting has been called.
func (d *IFD) Frozen() bool { return d.frozen }

// ---- typed accessors ----

func (d *IFD) intTag(tag tifftag.Tag) (int64, bool) {
	e, ok := d.entries[tag]
	if !ok || len(e.Ints) == 0 {
		return 0, false
	}
	return e.Ints[0], true
}

// ImageWidth returns the ImageWidth tag, validated positive and below 2^31.
func (d *IFD) ImageWidth() (int, error) { return d.dimension(tifftag.ImageWidth) }

// ImageHeight returns the ImageLength tag, validated positive and below 2^31.
func (d *IFD) ImageHeight() (int, error) { return d.dimension(tifftag.ImageLength) }

func (d *IFD) dimension(tag tifftag.Tag) (int, error) {
	v, ok := d.intTag(tag)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingTag, tag)
	}
	if v <= 0 || v >= (1<<31) {
		return 0, fmt.Errorf("ifd: %s value %d out of range (0, 2^31)", tag, v)
	}
	return int(v), nil
}

// BitsPerSample returns one bits-per-sample value per channel. When the tag
// is absent, TIFF 6.0 defaults to a single 1-bit sample.
func (d *IFD) BitsPerSample() ([]int, error) {
	e, ok := d.entries[tifftag.BitsPerSample]
	if !ok {
		return []int{1}, nil
	}
	out := make([]int, len(e.Ints))
	for i, v := range e.Ints {
		out[i] = int(v)
	}
	return out, nil
}

// ValidateEqualBitsPerSample enforces the spec's invariant that every
// channel share the same bit depth; unequal depths are a fatal format error.
func (d *IFD) ValidateEqualBitsPerSample() error {
	bps, err := d.BitsPerSample()
	if err != nil {
		return err
	}
	for i := 1; i < len(bps); i++ {
		if bps[i] != bps[0] {
			return fmt.Errorf("%w: %v", ErrUnequalBitsPerSample, bps)
		}
	}
	return nil
}

// BytesPerSample returns BitsPerSample()[0]/8, requiring the value to be a
// whole number of bytes (8, 16, 32 or 64 bits being the common case).
func (d *IFD) BytesPerSample() (int, error) {
	bps, err := d.BitsPerSample()
	if err != nil {
		return 0, err
	}
	if bps[0]%8 != 0 {
		return 0, fmt.Errorf("ifd: BitsPerSample %d is not byte-aligned", bps[0])
	}
	return bps[0] / 8, nil
}

// SamplesPerPixel returns the SamplesPerPixel tag, defaulting to 1.
func (d *IFD) SamplesPerPixel() int {
	v, ok := d.intTag(tifftag.SamplesPerPixel)
	if !ok {
		return 1
	}
	return int(v)
}

// Compression returns the Compression tag, defaulting to None.
func (d *IFD) Compression() compression.Type {
	v, ok := d.intTag(tifftag.Compression)
	if !ok {
		return compression.None
	}
	return compression.Type(v)
}

// Photometric returns the PhotometricInterpretation tag.
func (d *IFD) Photometric() photometric.Interpretation {
	v, ok := d.intTag(tifftag.PhotometricInterpretation)
	if !ok {
		return photometric.Unknown
	}
	return photometric.Interpretation(v)
}

// PlanarConfig returns the PlanarConfiguration tag, defaulting to Contig.
func (d *IFD) PlanarConfig() planarconfig.Type {
	v, ok := d.intTag(tifftag.PlanarConfiguration)
	if !ok {
		return planarconfig.Contig
	}
	return planarconfig.Type(v)
}

// FillOrder returns the FillOrder tag, defaulting to MSB2LSB.
func (d *IFD) FillOrder() fillorder.Type {
	v, ok := d.intTag(tifftag.FillOrder)
	if !ok {
		return fillorder.MSB2LSB
	}
	return fillorder.Type(v)
}

// Predictor returns the Predictor tag, defaulting to None.
func (d *IFD) Predictor() predictor.Type {
	v, ok := d.intTag(tifftag.Predictor)
	if !ok {
		return predictor.None
	}
	return predictor.Type(v)
}

// SampleFormat returns one SampleFormat value per channel, defaulting every
// channel to Uint when the tag is absent.
func (d *IFD) SampleFormat() []sampleformat.Type {
	e, ok := d.entries[tifftag.SampleFormat]
	if !ok {
		out := make([]sampleformat.Type, d.SamplesPerPixel())
		for i := range out {
			out[i] = sampleformat.Uint
		}
		return out
	}
	out := make([]sampleformat.Type, len(e.Ints))
	for i, v := range e.Ints {
		out[i] = sampleformat.Type(v)
	}
	return out
}

// YCbCrCoefficients returns the YCbCrCoefficients tag's three luma weights,
// or ok=false when the tag is absent (callers should fall back to
// pixelops.DefaultYCbCrCoefficients, the TIFF-specified BT.601 default).
func (d *IFD) YCbCrCoefficients() (coeffs [3]float64, ok bool) {
	e, present := d.entries[tifftag.YCbCrCoefficients]
	if !present || len(e.Rationals) < 6 {
		return coeffs, false
	}
	for i := 0; i < 3; i++ {
		coeffs[i] = rationalAt(e.Rationals, i)
	}
	return coeffs, true
}

// ReferenceBlackWhite returns the ReferenceBlackWhite tag's six values (a
// (black, white) pair per YCbCr component), or ok=false when absent.
func (d *IFD) ReferenceBlackWhite() (vals [6]float64, ok bool) {
	e, present := d.entries[tifftag.ReferenceBlackWhite]
	if !present || len(e.Rationals) < 12 {
		return vals, false
	}
	for i := 0; i < 6; i++ {
		vals[i] = rationalAt(e.Rationals, i)
	}
	return vals, true
}

func rationalAt(rationals []int64, i int) float64 {
	num, den := rationals[i*2], rationals[i*2+1]
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// PlaneCount returns the number of separately-stored sample planes: 1 for
// chunky images, SamplesPerPixel for planar-separated images (spec §3).
func (d *IFD) PlaneCount() int {
	if d.PlanarConfig() == planarconfig.Separate {
		return d.SamplesPerPixel()
	}
	return 1
}

// IsTiled reports whether this directory describes a tiled (as opposed to
// stripped) image.
func (d *IFD) IsTiled() bool {
	return d.Contains(tifftag.TileWidth) && d.Contains(tifftag.TileLength)
}

// TileSizeX returns the nominal tile width: the TileWidth tag if tiled,
// else the whole image width for a stripped image (spec §4.C).
func (d *IFD) TileSizeX() (int, error) {
	if d.IsTiled() {
		v, _ := d.intTag(tifftag.TileWidth)
		return int(v), nil
	}
	return d.ImageWidth()
}

// TileSizeY returns the nominal tile height: the TileLength tag if tiled,
// else RowsPerStrip if present, else the whole image height (single strip)
// for a stripped image (spec §4.C).
func (d *IFD) TileSizeY() (int, error) {
	if d.IsTiled() {
		v, _ := d.intTag(tifftag.TileLength)
		return int(v), nil
	}
	if v, ok := d.intTag(tifftag.RowsPerStrip); ok {
		return int(v), nil
	}
	return d.ImageHeight()
}

// TilesPerRow returns ceil(ImageWidth / TileSizeX).
func (d *IFD) TilesPerRow() (int, error) {
	w, err := d.ImageWidth()
	if err != nil {
		return 0, err
	}
	tx, err := d.TileSizeX()
	if err != nil || tx <= 0 {
		return 0, fmt.Errorf("ifd: invalid tile width")
	}
	return ceilDiv(w, tx), nil
}

// TilesPerColumn returns ceil(ImageHeight / TileSizeY).
func (d *IFD) TilesPerColumn() (int, error) {
	h, err := d.ImageHeight()
	if err != nil {
		return 0, err
	}
	ty, err := d.TileSizeY()
	if err != nil || ty <= 0 {
		return 0, fmt.Errorf("ifd: invalid tile height")
	}
	return ceilDiv(h, ty), nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// maxChecked31 is the largest value size_of_* products may reach before
// being considered an overflow per spec §4.C ("int checked for 31-bit
// overflow").
const maxChecked31 = math.MaxInt32

// SizeOfTile returns TileSizeX * TileSizeY * SamplesPerPixel * bytesPerSample,
// checked against the 31-bit overflow bound.
func (d *IFD) SizeOfTile(bytesPerSample int) (int, error) {
	tx, err := d.TileSizeX()
	if err != nil {
		return 0, err
	}
	ty, err := d.TileSizeY()
	if err != nil {
		return 0, err
	}
	return checkedProduct(tx, ty, d.SamplesPerPixel(), bytesPerSample)
}

// SizeOfRegion returns sx * sy * SamplesPerPixel * bytesPerSample, checked
// against the 31-bit overflow bound.
func (d *IFD) SizeOfRegion(sx, sy, bytesPerSample int) (int, error) {
	return checkedProduct(sx, sy, d.SamplesPerPixel(), bytesPerSample)
}

func checkedProduct(factors ...int) (int, error) {
	total := int64(1)
	for _, f := range factors {
		if f < 0 {
			return 0, fmt.Errorf("%w: negative factor %d", ErrOverflow, f)
		}
		total *= int64(f)
		if total > maxChecked31 {
			return 0, fmt.Errorf("%w: product %d exceeds 31-bit bound", ErrOverflow, total)
		}
	}
	return int(total), nil
}

// DataPositioning returns the per-tile (or per-strip) file offset and byte
// count arrays for this directory: TileOffsets/TileByteCounts when tiled,
// otherwise StripOffsets/StripByteCounts. A directory that carries
// TileByteCounts without being marked tiled still falls back to strip tags,
// since IsTiled is the sole authority here (spec §6).
func (d *IFD) DataPositioning() (offsets, byteCounts []uint64, err error) {
	offTag, cntTag := d.DataPositioningTags()
	offEntry, ok := d.entries[offTag]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingTag, offTag)
	}
	cntEntry, ok := d.entries[cntTag]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingTag, cntTag)
	}
	offsets = toUint64Slice(offEntry.Ints)
	byteCounts = toUint64Slice(cntEntry.Ints)
	return offsets, byteCounts, nil
}

func toUint64Slice(ints []int64) []uint64 {
	out := make([]uint64, len(ints))
	for i, v := range ints {
		out[i] = uint64(v)
	}
	return out
}

// ---- write-side staging ----

// UpdateDataPositioning installs the TileOffsets/TileByteCounts (tiled
// images) or StripOffsets/StripByteCounts (stripped images) arrays.
func (d *IFD) UpdateDataPositioning(offsets, byteCounts []uint64) error {
	if d.frozen {
		return ErrFrozen
	}
	offTag, cntTag := d.DataPositioningTags()
	d.entries[offTag] = intEntryFromU64(offTag, chooseLongType(offsets), offsets)
	d.entries[cntTag] = intEntryFromU64(cntTag, chooseLongType(byteCounts), byteCounts)
	return nil
}

// ReserveDataPositioning installs n-element, all-zero TileOffsets/
// TileByteCounts (or Strip equivalents) at a fixed on-disk field type,
// reserving their final size ahead of knowing the real values. wide forces
// Long8 so the reservation is wide enough for any eventual 64-bit offset;
// used by the writer's WriteForward path, which must fix the entry's
// serialised width before tile data (and therefore the real offsets) exist
// (spec §4.H point 3).
func (d *IFD) ReserveDataPositioning(n int, wide bool) error {
	if d.frozen {
		return ErrFrozen
	}
	typ := fieldtype.Long
	if wide {
		typ = fieldtype.Long8
	}
	zero := make([]uint64, n)
	offTag, cntTag := d.DataPositioningTags()
	d.entries[offTag] = intEntryFromU64(offTag, typ, zero)
	d.entries[cntTag] = intEntryFromU64(cntTag, typ, zero)
	return nil
}

// UpdateDataPositioningTyped behaves like UpdateDataPositioning but keeps the
// exact field type a prior ReserveDataPositioning call committed to on disk,
// rather than re-deriving it from the new values' magnitude — required when
// patching a forward-written IFD in place, where the serialised width can no
// longer change.
func (d *IFD) UpdateDataPositioningTyped(offsets, byteCounts []uint64, typ fieldtype.Type) error {
	if d.frozen {
		return ErrFrozen
	}
	offTag, cntTag := d.DataPositioningTags()
	d.entries[offTag] = intEntryFromU64(offTag, typ, offsets)
	d.entries[cntTag] = intEntryFromU64(cntTag, typ, byteCounts)
	return nil
}

// DataPositioningTags returns the pair of tags this directory's pixel data
// is positioned through: TileOffsets/TileByteCounts when tiled, otherwise
// StripOffsets/StripByteCounts.
func (d *IFD) DataPositioningTags() (tifftag.Tag, tifftag.Tag) {
	if d.IsTiled() {
		return tifftag.TileOffsets, tifftag.TileByteCounts
	}
	return tifftag.StripOffsets, tifftag.StripByteCounts
}

// UpdateImageDimensions installs ImageWidth/ImageLength, used by resizable
// tile maps once the final grid extent is known (spec §4.F).
func (d *IFD) UpdateImageDimensions(w, h int) error {
	if d.frozen {
		return ErrFrozen
	}
	d.entries[tifftag.ImageWidth] = NewIntEntry(tifftag.ImageWidth, fieldtype.Long, []int64{int64(w)})
	d.entries[tifftag.ImageLength] = NewIntEntry(tifftag.ImageLength, fieldtype.Long, []int64{int64(h)})
	return nil
}

// NewSubfileType returns the NewSubfileType tag, defaulting to 0.
func (d *IFD) NewSubfileType() uint32 {
	v, ok := d.intTag(tifftag.NewSubfileType)
	if !ok {
		return 0
	}
	return uint32(v)
}

// IsThumbnail reports whether bit 0 of NewSubfileType is set (spec §4.G).
func (d *IFD) IsThumbnail() bool {
	return d.NewSubfileType()&1 != 0
}

func chooseLongType(values []uint64) fieldtype.Type {
	for _, v := range values {
		if v > math.MaxUint32 {
			return fieldtype.Long8
		}
	}
	return fieldtype.Long
}

func intEntryFromU64(tag tifftag.Tag, typ fieldtype.Type, values []uint64) *Entry {
	ints := make([]int64, len(values))
	for i, v := range values {
		ints[i] = int64(v)
	}
	return &Entry{Tag: tag, Type: typ, Count: uint64(len(ints)), Ints: ints}
}
