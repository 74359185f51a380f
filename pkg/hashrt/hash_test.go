package hashrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func djb2(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}

	return h
}

func TestHashString(t *testing.T) {
	assert.Equal(t, djb2("main"), HashString("main"))
	assert.Equal(t, uint64(5381), HashString(""))
	assert.NotEqual(t, HashString("a"), HashString("b"))
}

func TestSimpleHasherPassesValueThrough(t *testing.T) {
	var s SimpleHasher

	assert.Equal(t, uint64(42), s.Absorb(s.Init(), 42))
}

func TestJodyHasherMixes(t *testing.T) {
	var j JodyHasher

	one := j.Absorb(j.Init(), 1)
	two := j.Absorb(one, 2)

	assert.Equal(t, uint64(1)*jodyPrime, one)
	assert.NotEqual(t, one, two)

	// Order matters for aggregate hashing.
	alt := j.Absorb(j.Absorb(j.Init(), 2), 1)
	assert.NotEqual(t, two, alt)
}

func TestHashValuePrimitives(t *testing.T) {
	assert.Equal(t, uint64(7), HashValue[JodyHasher, SimpleHasher](int(7)))
	assert.Equal(t, uint64(7), HashValue[JodyHasher, SimpleHasher](uint8(7)))
	assert.Equal(t, uint64(1), HashValue[JodyHasher, SimpleHasher](true))
	assert.Equal(t, uint64(0), HashValue[JodyHasher, SimpleHasher](false))

	// Negative values sign-extend before widening so both programs agree.
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), HashValue[JodyHasher, SimpleHasher](int8(-1)))

	assert.Equal(t, djb2("hi"), HashValue[JodyHasher, SimpleHasher]("hi"))
}

func TestHashValuePointers(t *testing.T) {
	assert.Equal(t, NullPointerHash, HashValue[JodyHasher, SimpleHasher](nil))

	var p *int
	assert.Equal(t, NullPointerHash, HashValue[JodyHasher, SimpleHasher](p))

	v := 7
	assert.Equal(t, uint64(7), HashValue[JodyHasher, SimpleHasher](&v))

	// At depth zero a live pointer degrades to the leaf sentinel.
	assert.Equal(t, LeafPointerHash, HashValueDepth[JodyHasher, SimpleHasher](&v, 0))
}

func TestHashValueAggregates(t *testing.T) {
	type pair struct {
		A int
		B int
	}

	var j JodyHasher

	want := j.Absorb(j.Absorb(j.Init(), 1), 2)
	assert.Equal(t, want, HashValue[JodyHasher, SimpleHasher](pair{A: 1, B: 2}))

	assert.Equal(t, want, HashValue[JodyHasher, SimpleHasher]([]int{1, 2}))
	assert.Equal(t, want, HashValue[JodyHasher, SimpleHasher]([2]int{1, 2}))

	assert.Equal(t, LeafRecordHash, HashValueDepth[JodyHasher, SimpleHasher](pair{}, 0))
}

type fixedHash struct{}

func (fixedHash) CrossCheckHash(_ uint) uint64 { return 0xFEED }

func TestHashValuePrefersHashableMethod(t *testing.T) {
	assert.Equal(t, uint64(0xFEED), HashValue[JodyHasher, SimpleHasher](fixedHash{}))
}
