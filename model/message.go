package model

import "encoding/json"

// Attachment is a reward bundle carried by a grant message.
type Attachment struct {
	Type     string      `json:"type"`
	RewardID string      `json:"rewardId"`
	Quantity json.Number `json:"quantity"`
}

// Message is a single mailbox grant addressed to one account.
type Message struct {
	AccountID    string
	Subject      string
	Body         string
	Icon         string
	Banner       string
	InternalNote string
	Expiration   int64
	VisibleFrom  int64
	Attachments  []Attachment
}

type wireMessage struct {
	Subject      string       `json:"subject"`
	Body         string       `json:"body"`
	Expiration   int64        `json:"expiration"`
	VisibleFrom  int64        `json:"visibleFrom"`
	Icon         string       `json:"icon"`
	Banner       string       `json:"banner"`
	InternalNote string       `json:"internalNote"`
	Attachments  []Attachment `json:"attachments"`
}

type wireGrant struct {
	AccountIDs []string    `json:"accountIds"`
	Message    wireMessage `json:"message"`
}

// MarshalJSON renders the mailbox wire shape: the account id wrapped in
// accountIds and every other field nested under message.
func (m Message) MarshalJSON() ([]byte, error) {
	attachments := m.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	return json.Marshal(wireGrant{
		AccountIDs: []string{m.AccountID},
		Message: wireMessage{
			Subject:      m.Subject,
			Body:         m.Body,
			Expiration:   m.Expiration,
			VisibleFrom:  m.VisibleFrom,
			Icon:         m.Icon,
			Banner:       m.Banner,
			InternalNote: m.InternalNote,
			Attachments:  attachments,
		},
	})
}

// Prepared is a validated message with its serialized body and position in the input.
type Prepared struct {
	// Line is the 1-based ordinal of the message among all non-blank rows.
	Line int
	// SourceLine is the line in the CSV file the row started on.
	SourceLine int
	Message    Message
	Payload    []byte
}
