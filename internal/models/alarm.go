// Package models holds the alarm event produced by the decoder and read by
// every adapter.
package models

import (
	"strings"
	"time"

	"alarm-relay/internal/common/errors"
)

// Kind is the telegram type of an alarm event
type Kind string

const (
	// KindFMS is a vehicle status telegram
	KindFMS Kind = "FMS"
	// KindZVEI is a tone-sequence alarm
	KindZVEI Kind = "ZVEI"
	// KindPOC is a POCSAG pager message
	KindPOC Kind = "POC"
)

// Kinds lists every kind the relay understands
var Kinds = []Kind{KindFMS, KindZVEI, KindPOC}

// ParseKind converts s into a Kind, accepting any letter case
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", errors.ValidationError("invalid alarm kind " + s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindFMS, KindZVEI, KindPOC:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// AlarmEvent is one decoded signal. Which fields carry meaning depends on
// Kind; an empty string means the decoder did not provide the field.
type AlarmEvent struct {
	Kind      Kind      `json:"type" validate:"required,oneof=FMS ZVEI POC"`
	Frequency string    `json:"frequency,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	// FMS
	FMS           string `json:"fms,omitempty"`
	Status        string `json:"status,omitempty"`
	Direction     string `json:"direction,omitempty"`
	DirectionText string `json:"directionText,omitempty"`
	TSI           string `json:"tsi,omitempty"`

	// ZVEI
	ZVEI string `json:"zvei,omitempty"`

	// POC
	RIC          string `json:"ric,omitempty"`
	Function     string `json:"function,omitempty" validate:"omitempty,max=1"`
	FunctionChar string `json:"functionChar,omitempty"`
	Msg          string `json:"msg,omitempty"`
	Bitrate      string `json:"bitrate,omitempty"`

	Description string `json:"description,omitempty"`
}

// Validate rejects events whose kind is unknown
func (e AlarmEvent) Validate() error {
	if !e.Kind.Valid() {
		return errors.ValidationError("invalid alarm kind " + string(e.Kind))
	}
	return nil
}

// SubAddress returns the RIC sub-address letter, preferring the decoder's
// own FunctionChar when present.
func (e AlarmEvent) SubAddress() string {
	if e.FunctionChar != "" {
		return e.FunctionChar
	}
	return FunctionLetter(e.Function)
}

// FunctionLetter maps the function digits "1".."4" to the sub-address
// letters "a".."d". Any other value is returned unchanged.
func FunctionLetter(function string) string {
	switch function {
	case "1":
		return "a"
	case "2":
		return "b"
	case "3":
		return "c"
	case "4":
		return "d"
	default:
		return function
	}
}

// DedupKey identifies repeated transmissions of the same alarm
func (e AlarmEvent) DedupKey() string {
	switch e.Kind {
	case KindFMS:
		return strings.Join([]string{string(e.Kind), e.FMS, e.Status, e.Direction, e.TSI}, "|")
	case KindZVEI:
		return strings.Join([]string{string(e.Kind), e.ZVEI}, "|")
	case KindPOC:
		return strings.Join([]string{string(e.Kind), e.RIC, e.Function, e.Msg}, "|")
	default:
		return string(e.Kind)
	}
}
