package grant

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dhcgn/mailbox-grant/model"
)

// DefaultExpiry is added to the build time when a row leaves expiration blank.
const DefaultExpiry = 30 * 24 * time.Hour

// Builder maps grant rows onto messages.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder reading the clock from now, or time.Now when nil.
func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// Build converts one row into a message. The clock is read on every call so
// blank timing fields reflect the moment each message was built.
func (b *Builder) Build(row Row) (model.Message, error) {
	cells := row.Cells
	if len(cells) < StartOfAttachments {
		return model.Message{}, &SchemaError{
			Line: row.SourceLine,
			Err:  fmt.Errorf("found %d cells, expected at least %d", len(cells), StartOfAttachments),
		}
	}

	now := b.now().UTC().Unix()
	expiration, err := epochOrDefault(cells[IndexExpiration], now+int64(DefaultExpiry/time.Second))
	if err != nil {
		return model.Message{}, &SchemaError{Line: row.SourceLine, Column: IndexExpiration + 1, Err: fmt.Errorf("expiration: %w", err)}
	}
	visibleFrom, err := epochOrDefault(cells[IndexVisibleFrom], now)
	if err != nil {
		return model.Message{}, &SchemaError{Line: row.SourceLine, Column: IndexVisibleFrom + 1, Err: fmt.Errorf("visible from: %w", err)}
	}

	attachments, err := extractAttachments(row)
	if err != nil {
		return model.Message{}, err
	}

	return model.Message{
		AccountID:    cells[IndexAccountID],
		Subject:      cells[IndexSubject],
		Body:         cells[IndexBody],
		Icon:         cells[IndexIcon],
		Banner:       cells[IndexBanner],
		InternalNote: cells[IndexNote],
		Expiration:   expiration,
		VisibleFrom:  visibleFrom,
		Attachments:  attachments,
	}, nil
}

// extractAttachments walks the triples after the fixed columns and stops at
// the first one whose type cell is blank.
func extractAttachments(row Row) ([]model.Attachment, error) {
	cells := row.Cells
	attachments := []model.Attachment{}
	for i := StartOfAttachments; i < len(cells); i += AttachmentWidth {
		if strings.TrimSpace(cells[i]) == "" {
			break
		}
		if i+AttachmentWidth > len(cells) {
			return nil, &SchemaError{
				Line:   row.SourceLine,
				Column: i + 1,
				Err:    fmt.Errorf("attachment %q is missing its item or quantity", cells[i]),
			}
		}
		quantity := strings.TrimSpace(cells[i+2])
		if !isNumber(quantity) {
			return nil, &SchemaError{
				Line:   row.SourceLine,
				Column: i + 3,
				Err:    fmt.Errorf("quantity %q is not a number", cells[i+2]),
			}
		}
		attachments = append(attachments, model.Attachment{
			Type:     cells[i],
			RewardID: cells[i+1],
			Quantity: json.Number(quantity),
		})
	}
	return attachments, nil
}

func epochOrDefault(cell string, fallback int64) (int64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return fallback, nil
	}
	return strconv.ParseInt(cell, 10, 64)
}

// isNumber accepts exactly the JSON number grammar.
func isNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}
