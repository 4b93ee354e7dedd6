package grant

import (
	"fmt"
	"strings"
)

// Fixed column positions of a grant row.
const (
	IndexAccountID = iota
	IndexSubject
	IndexBody
	IndexBanner
	IndexIcon
	IndexNote
	IndexExpiration
	IndexVisibleFrom
	StartOfAttachments
)

// AttachmentWidth is the number of cells per attachment (type, item, quantity).
const AttachmentWidth = 3

var fixedHeaders = [StartOfAttachments]string{
	IndexAccountID:   "Account ID",
	IndexSubject:     "Subject",
	IndexBody:        "Body",
	IndexBanner:      "Banner",
	IndexIcon:        "Icon",
	IndexNote:        "Note",
	IndexExpiration:  "Expiration",
	IndexVisibleFrom: "Visible From",
}

var attachmentHeaders = [AttachmentWidth]string{"Type", "Item", "Quantity"}

// ValidateHeader checks the header row against the expected grant layout: the
// eight fixed labels followed by any number of Type/Item/Quantity triples.
func ValidateHeader(header []string) error {
	if len(header) < StartOfAttachments {
		return &SchemaError{
			Line: 1,
			Err:  fmt.Errorf("found %d headers, expected at least %d", len(header), StartOfAttachments),
		}
	}
	for i, want := range fixedHeaders {
		if err := verifyHeader(header, i, want); err != nil {
			return err
		}
	}
	for i := StartOfAttachments; i < len(header); i += AttachmentWidth {
		for offset, want := range attachmentHeaders {
			if err := verifyHeader(header, i+offset, want); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyHeader(header []string, position int, want string) error {
	if position >= len(header) {
		return &SchemaError{
			Line:     1,
			Column:   position + 1,
			Expected: want,
			Err:      fmt.Errorf("found %d headers, expected at least %d", len(header), position+1),
		}
	}
	got := stripCR(header[position])
	if got != want {
		return &SchemaError{Line: 1, Column: position + 1, Expected: want, Got: got}
	}
	return nil
}

func stripCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}

// IsBlank reports whether every cell of the row is empty or whitespace.
func IsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
