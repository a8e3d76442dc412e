package table

import "errors"

// Specifier tokens
const (
	kindArchive = "ark"
	kindScript  = "scp"
	kindWave    = "wav"
	stdStream   = "-"
)

// Binary object framing
const (
	binaryMarker0  = 0x00 // First byte of the binary header
	binaryMarker1  = 'B'  // Second byte of the binary header
	binaryHeader   = "\x00B"
	int32SizeByte  = 4 // Size prefix written before every int32
	float32Size    = 4
	float64Size    = 8
	tokenFloatMat  = "FM"
	tokenDoubleMat = "DM"
	tokenCompress  = "CM" // Prefix shared by all compressed matrix tokens
)

// Text object framing
const (
	textMatrixOpen  = '['
	textMatrixClose = ']'
)

// I/O buffer sizes
const (
	readerBufferSize = 64 * 1024
	writerBufferSize = 256 * 1024

	// Matrix values allocated up front before any row is read
	maxPreallocValues = 64 * 1024
)

// WAV normalization
const (
	bitsPerSample8  = 8
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	unsigned8Midpoint = 128
)

// Common errors returned by table readers and writers.
var (
	// ErrBadSpecifier indicates an rspecifier or wspecifier that cannot be parsed.
	ErrBadSpecifier = errors.New("invalid table specifier")

	// ErrUnsupportedFormat indicates an object type this package cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported object format")

	// ErrMalformedArchive indicates corrupt or truncated archive contents.
	ErrMalformedArchive = errors.New("malformed archive")
)
