package grant

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/mailbox-grant/model"
)

func TestValidate_RoundTrip(t *testing.T) {
	msg := model.Message{
		AccountID:    "acc-1",
		Subject:      `He said "hi", then left`,
		Body:         "line one\nline two \\ end",
		Expiration:   1_800_000_000,
		VisibleFrom:  1_700_000_000,
		InternalNote: "<b>note</b>",
		Attachments:  []model.Attachment{{Type: "coins", RewardID: "gold", Quantity: "5"}},
	}

	payload, err := Validate(msg)
	require.NoError(t, err)

	var decoded struct {
		AccountIDs []string `json:"accountIds"`
		Message    struct {
			Subject     string             `json:"subject"`
			Body        string             `json:"body"`
			Expiration  int64              `json:"expiration"`
			VisibleFrom int64              `json:"visibleFrom"`
			Attachments []model.Attachment `json:"attachments"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, []string{"acc-1"}, decoded.AccountIDs)
	assert.Equal(t, msg.Subject, decoded.Message.Subject)
	assert.Equal(t, msg.Body, decoded.Message.Body)
	assert.Equal(t, msg.Expiration, decoded.Message.Expiration)
	assert.Equal(t, msg.Attachments, decoded.Message.Attachments)
}

func TestValidate_EmptyAttachmentsIsArray(t *testing.T) {
	payload, err := Validate(model.Message{AccountID: "acc-1"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"attachments":[]`)
}

func TestValidate_RejectsBrokenQuantity(t *testing.T) {
	msg := model.Message{
		AccountID:   "acc-1",
		Attachments: []model.Attachment{{Type: "coins", RewardID: "gold", Quantity: "1,2"}},
	}
	_, err := Validate(msg)
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestValidate_RequiresAccountID(t *testing.T) {
	_, err := Validate(model.Message{AccountID: " "})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.NotEmpty(t, schemaErr.Payload)
}

func TestPrepare_AbortsOnFirstInvalidRow(t *testing.T) {
	rows := []Row{
		rowWith(nil),
		{SourceLine: 3, Cells: []string{"", "s", "b", "", "", "", "", ""}},
		rowWith(nil),
	}
	prepared, err := Prepare(NewBuilder(nil), rows)
	assert.Nil(t, prepared)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, 3, schemaErr.Line)
}

func TestPrepare_NumbersLinesInOrder(t *testing.T) {
	rows := []Row{rowWith(nil), rowWith(nil), rowWith(nil)}
	rows[1].SourceLine = 7

	prepared, err := Prepare(NewBuilder(nil), rows)
	require.NoError(t, err)
	require.Len(t, prepared, 3)
	for i, p := range prepared {
		assert.Equal(t, i+1, p.Line)
		assert.NotEmpty(t, p.Payload)
	}
	assert.Equal(t, 7, prepared[1].SourceLine)
}
