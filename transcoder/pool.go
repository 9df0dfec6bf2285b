package transcoder

import (
	"sync"

	"github.com/wippyai/avro-model/transcoder/internal/binary"
)

const (
	// Pool limits to prevent memory bloat
	poolMaxCap  = 64 << 10 // max retained buffer bytes
	poolInitCap = 256
)

// writer pool for model encoding
var writerPool = sync.Pool{
	New: func() any {
		return binary.NewWriter(make([]byte, 0, poolInitCap))
	},
}

func getWriter() *binary.Writer {
	return writerPool.Get().(*binary.Writer)
}

func putWriter(w *binary.Writer) {
	if w == nil || w.Cap() > poolMaxCap {
		return // reject oversized
	}
	w.Reset()
	writerPool.Put(w)
}
