package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a news item. The numeric codes are what
// gets persisted.
type Status int

const (
	StatusDisabled Status = iota
	StatusActive
	StatusPending
	StatusConfirm
	StatusReject
	StatusDeleted
)

const DefaultStatus = StatusActive

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "DISABLED"
	case StatusActive:
		return "ACTIVE"
	case StatusPending:
		return "PENDING"
	case StatusConfirm:
		return "CONFIRM"
	case StatusReject:
		return "REJECT"
	case StatusDeleted:
		return "DELETED"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDisabled, StatusActive, StatusPending, StatusConfirm, StatusReject, StatusDeleted:
		return true
	}
	return false
}

// ParseStatus accepts either the status name (case-insensitive) or its numeric code.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if code, err := strconv.Atoi(raw); err == nil {
		return statusFromCode(code)
	}
	for s := StatusDisabled; s <= StatusDeleted; s++ {
		if strings.EqualFold(raw, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: status %q is not recognised", ErrInvalidField, raw)
}

func statusFromCode(code int) (Status, error) {
	s := Status(code)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: status code %d is not recognised", ErrInvalidField, code)
	}
	return s, nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("cannot marshal unknown status %d", int(s))
	}
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseStatus(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("%w: status must be a name or a code", ErrInvalidField)
	}
	parsed, err := statusFromCode(code)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
