package compress

// NoOpCodec stores entry bytes uncompressed. The writer selects it
// automatically for entries under the minimum compression size, for
// already-compressed file types, and whenever a real codec's output isn't
// strictly smaller than the input.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// Compress returns data unchanged. The returned slice aliases the input;
// callers must not mutate data after calling this if they still hold the
// result.
func (NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data unchanged.
func (NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
