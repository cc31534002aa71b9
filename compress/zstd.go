package compress

// ZstdCodec produces level-6 Zstandard frames for entry payloads, as chosen
// by automatic compression selection for text-like formats. The Compress
// and Decompress methods are implemented per build tag: zstd_pure.go
// (builds with cgo disabled, pure-Go via klauspost/compress/zstd) or
// zstd_cgo.go (builds with cgo enabled, via valyala/gozstd), so the choice
// of backend never changes the format. Both backends produce and accept
// standard Zstd frames.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}
