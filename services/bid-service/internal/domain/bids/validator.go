package bids

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason is the machine readable cause of a rejected submission.
type Reason string

const (
	ReasonMissingField     Reason = "MissingField"
	ReasonInvalidAmount    Reason = "InvalidAmount"
	ReasonInvalidReference Reason = "InvalidReference"
	ReasonInvalidTimestamp Reason = "InvalidTimestamp"
)

// ValidationError rejects a submission before anything is stored.
type ValidationError struct {
	Reason Reason
	// Fields maps each offending JSON field to what is wrong with it.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid bid (%s): %s", e.Reason, strings.Join(names, ", "))
}

// Submission is a bid as received, before any type checks. Fields are kept
// raw so that a quoted amount can be told apart from a numeric one.
type Submission struct {
	ItemID   json.RawMessage `json:"item_id"`
	UserID   json.RawMessage `json:"user_id"`
	Amount   json.RawMessage `json:"amount"`
	PlacedAt json.RawMessage `json:"placed_at,omitempty"`

	// LegacyAmount is the field name older clients send instead of amount.
	LegacyAmount json.RawMessage `json:"tawaran_harga,omitempty"`
}

// PatchSubmission is a correction as received. Unknown fields are rejected
// by the decoder, so id can never be patched.
type PatchSubmission struct {
	ItemID       json.RawMessage `json:"item_id"`
	UserID       json.RawMessage `json:"user_id"`
	Amount       json.RawMessage `json:"amount"`
	PlacedAt     json.RawMessage `json:"placed_at"`
	LegacyAmount json.RawMessage `json:"tawaran_harga"`
}

// Validate checks presence and shape of item_id, user_id and amount. It does
// not check that the item or user exist, and it places no bound on amount.
func Validate(s Submission) (Draft, error) {
	amount := s.Amount
	if absent(amount) {
		amount = s.LegacyAmount
	}

	fields := map[string]string{}
	missing := false
	for name, raw := range map[string]json.RawMessage{"item_id": s.ItemID, "user_id": s.UserID, "amount": amount} {
		if absent(raw) {
			fields[name] = "is required"
			missing = true
		}
	}

	var draft Draft
	reason := ReasonMissingField

	placedAt, err := parseTimestamp(s.PlacedAt)
	if err != nil {
		fields["placed_at"] = err.Error()
		reason = ReasonInvalidTimestamp
	}
	draft.PlacedAt = placedAt

	if !absent(s.ItemID) {
		id, err := parseReference(s.ItemID)
		if err != nil {
			fields["item_id"] = err.Error()
			reason = ReasonInvalidReference
		}
		draft.ItemID = ItemID(id)
	}
	if !absent(s.UserID) {
		id, err := parseReference(s.UserID)
		if err != nil {
			fields["user_id"] = err.Error()
			reason = ReasonInvalidReference
		}
		draft.UserID = UserID(id)
	}
	if !absent(amount) {
		a, err := parseAmount(amount)
		if err != nil {
			fields["amount"] = err.Error()
			reason = ReasonInvalidAmount
		}
		draft.Amount = a
	}

	if len(fields) > 0 {
		if missing {
			reason = ReasonMissingField
		}
		return Draft{}, &ValidationError{Reason: reason, Fields: fields}
	}
	return draft, nil
}

// ValidatePatch type-checks the fields present in a correction. Absent and
// null fields are left out of the patch.
func ValidatePatch(s PatchSubmission) (Patch, error) {
	var patch Patch
	fields := map[string]string{}
	reason := ReasonInvalidReference

	placedAt, err := parseTimestamp(s.PlacedAt)
	if err != nil {
		fields["placed_at"] = err.Error()
		reason = ReasonInvalidTimestamp
	}
	patch.PlacedAt = placedAt

	if !absent(s.ItemID) {
		id, err := parseReference(s.ItemID)
		if err != nil {
			fields["item_id"] = err.Error()
			reason = ReasonInvalidReference
		} else {
			v := ItemID(id)
			patch.ItemID = &v
		}
	}
	if !absent(s.UserID) {
		id, err := parseReference(s.UserID)
		if err != nil {
			fields["user_id"] = err.Error()
			reason = ReasonInvalidReference
		} else {
			v := UserID(id)
			patch.UserID = &v
		}
	}
	amount := s.Amount
	if absent(amount) {
		amount = s.LegacyAmount
	}
	if !absent(amount) {
		a, err := parseAmount(amount)
		if err != nil {
			fields["amount"] = err.Error()
			reason = ReasonInvalidAmount
		} else {
			patch.Amount = &a
		}
	}

	if len(fields) > 0 {
		return Patch{}, &ValidationError{Reason: reason, Fields: fields}
	}
	return patch, nil
}

func absent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isNumberLiteral(raw []byte) bool {
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if !isNumberLiteral(trimmed) {
		return decimal.Decimal{}, fmt.Errorf("must be a number")
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("must be a number")
	}
	return d, nil
}

// parseTimestamp accepts an RFC3339 string and returns it in UTC. Absent and
// null yield nil.
func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	if absent(raw) {
		return nil, nil
	}
	var t time.Time
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("must be an RFC3339 timestamp")
	}
	t = t.UTC()
	return &t, nil
}

func parseReference(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if !isNumberLiteral(trimmed) {
		return 0, fmt.Errorf("must be an integer")
	}
	id, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return id, nil
}
