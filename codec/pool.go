package codec

import (
	"sync"

	"github.com/wippyai/wirecodec/wire"
)

const (
	// Pool limits to prevent memory bloat
	poolMaxWriterCap  = 64 << 10
	poolInitWriterCap = 256
)

var writerPool = sync.Pool{
	New: func() any {
		return wire.NewWriter(poolInitWriterCap)
	},
}

func getWriter() *wire.Writer {
	return writerPool.Get().(*wire.Writer)
}

func putWriter(w *wire.Writer) {
	if w == nil || w.Cap() > poolMaxWriterCap {
		return // reject oversized
	}
	w.Reset()
	writerPool.Put(w)
}
