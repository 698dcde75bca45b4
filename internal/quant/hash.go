package quant

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
)

// hasher accumulates structural hashes over resolved config fields. Bound
// functions are represented by their method tags, which are stable and
// comparable where function pointers are not.
type hasher struct {
	h hash.Hash64
}

func newHasher() hasher {
	return hasher{h: fnv.New64a()}
}

func (h hasher) writeInt(v int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(int64(v)))
	h.h.Write(b[:])
}

func (h hasher) writeBool(v bool) {
	if v {
		h.h.Write([]byte{1})
		return
	}
	h.h.Write([]byte{0})
}

func (h hasher) writeFloat64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	h.h.Write(b[:])
}

func (h hasher) writeFloat32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	h.h.Write(b[:])
}

func (h hasher) writeString(s string) {
	h.h.Write([]byte(s))
	h.h.Write([]byte{0})
}

func (h hasher) sum() uint64 {
	return h.h.Sum64()
}
