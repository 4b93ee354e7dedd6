package grant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHeader(attachments int) []string {
	header := []string{"Account ID", "Subject", "Body", "Banner", "Icon", "Note", "Expiration", "Visible From"}
	for i := 0; i < attachments; i++ {
		header = append(header, "Type", "Item", "Quantity")
	}
	return header
}

func TestValidateHeader_Valid(t *testing.T) {
	for _, n := range []int{0, 1, 3} {
		assert.NoError(t, ValidateHeader(validHeader(n)), "attachments=%d", n)
	}
}

func TestValidateHeader_StripsCarriageReturn(t *testing.T) {
	header := validHeader(1)
	header[len(header)-1] = "Quantity\r"
	assert.NoError(t, ValidateHeader(header))
}

func TestValidateHeader_MissingQuantity(t *testing.T) {
	header := validHeader(2)
	header = header[:len(header)-1]

	err := ValidateHeader(header)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "Quantity", schemaErr.Expected)
	assert.Equal(t, len(header)+1, schemaErr.Column)
}

func TestValidateHeader_Mismatch(t *testing.T) {
	header := validHeader(1)
	header[IndexBanner] = "Icon"
	header[IndexIcon] = "Banner"

	err := ValidateHeader(header)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "Banner", schemaErr.Expected)
	assert.Equal(t, "Icon", schemaErr.Got)
	assert.Equal(t, 1, schemaErr.Line)
}

func TestValidateHeader_TooShort(t *testing.T) {
	err := ValidateHeader([]string{"Account ID", "Subject"})
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank([]string{"", " ", "\t"}))
	assert.True(t, IsBlank(nil))
	assert.False(t, IsBlank([]string{"", "x"}))
}
