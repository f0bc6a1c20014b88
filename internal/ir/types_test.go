package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorCodeString(t *testing.T) {
	assert.Equal(t, "INVALID", OpInvalid.String())
	assert.Equal(t, "POW", OpPow.String())
	assert.Equal(t, "CAST", OpCast.String())
	assert.Equal(t, "OperatorCode(99)", OperatorCode(99).String())
}

func TestOperatorCodeIDsAreFixed(t *testing.T) {
	// Emitted symbols are derived from these ids; changing one breaks every
	// released bootstrap.
	ids := map[OperatorCode]uint8{
		OpInvalid: 0, OpPow: 2, OpMul: 3, OpDiv: 4, OpMod: 5, OpAdd: 6, OpSub: 7,
		OpGE: 8, OpLE: 9, OpGT: 10, OpLT: 11, OpEQ: 12, OpNE: 13, OpCast: 20,
	}
	for code, id := range ids {
		assert.Equal(t, id, uint8(code), code.String())
	}
}

func TestParseOperatorCode(t *testing.T) {
	code, err := ParseOperatorCode("pow")
	require.NoError(t, err)
	assert.Equal(t, OpPow, code)

	code, err = ParseOperatorCode(" NE ")
	require.NoError(t, err)
	assert.Equal(t, OpNE, code)

	_, err = ParseOperatorCode("XOR")
	require.Error(t, err)
}

func TestOperatorCodeText(t *testing.T) {
	text, err := OpMul.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "MUL", string(text))

	var code OperatorCode
	require.NoError(t, code.UnmarshalText([]byte("SUB")))
	assert.Equal(t, OpSub, code)
	require.Error(t, code.UnmarshalText([]byte("nope")))
}

func TestOperandKind(t *testing.T) {
	assert.Equal(t, "literal", Lit(Number(1)).Kind())
	assert.Equal(t, "ref", RefTo(2).Kind())
	assert.Equal(t, "type", TypeOperand(TypeString).Kind())
	assert.Equal(t, "empty", Operand{}.Kind())
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 2, s.Indent)
	assert.True(t, s.Prettify)
}
