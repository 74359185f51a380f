package hashrt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEmitsToCurrentSink(t *testing.T) {
	sink := &MemorySink{}
	prev := SetSink(sink)
	defer SetSink(prev)

	Check(TagFunctionEntry, 123)
	CheckValue[JodyHasher, SimpleHasher](TagFunctionArg, 7)

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, Record{Tag: TagFunctionEntry, Hash: 123}, records[0])
	assert.Equal(t, Record{Tag: TagFunctionArg, Hash: 7}, records[1])

	sink.Reset()
	assert.Empty(t, sink.Records())
}

func TestWriterSinkFormat(t *testing.T) {
	var buf bytes.Buffer

	sink := NewWriterSink(&buf)
	sink.Emit(TagFunctionEntry, 10)
	sink.Emit(TagFunctionReturn, 20)

	assert.Equal(t, "XCHECK(Ent):10\nXCHECK(Ret):20\n", buf.String())
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "Ent", TagFunctionEntry.String())
	assert.Equal(t, "Exi", TagFunctionExit.String())
	assert.Equal(t, "Arg", TagFunctionArg.String())
	assert.Equal(t, "Ret", TagFunctionReturn.String())
	assert.Equal(t, "Unk", TagUnknown.String())
}
