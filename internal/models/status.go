package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the outcome of a single service check as stored by the gameserver.
type Status int

const (
	StatusNotChecked   Status = -1
	StatusOK           Status = 0
	StatusDown         Status = 1
	StatusFaulty       Status = 2
	StatusFlagNotFound Status = 3
	StatusRecovering   Status = 4
	// StatusTimeout is recorded when a checker was terminated at the end of a tick.
	StatusTimeout Status = 5
)

var statusNames = map[Status]string{
	StatusNotChecked:   "NOT_CHECKED",
	StatusOK:           "OK",
	StatusDown:         "DOWN",
	StatusFaulty:       "FAULTY",
	StatusFlagNotFound: "FLAG_NOT_FOUND",
	StatusRecovering:   "RECOVERING",
	StatusTimeout:      "TIMEOUT",
}

// statusClasses must stay in sync with the descriptions served by the gameserver.
var statusClasses = map[Status]string{
	StatusNotChecked:   "muted",
	StatusOK:           "success",
	StatusDown:         "danger",
	StatusFaulty:       "danger",
	StatusFlagNotFound: "warning",
	StatusRecovering:   "info",
	StatusTimeout:      "active",
}

var flagstoreIcons = map[Status]string{
	StatusNotChecked:   "glyphicon glyphicon-question-sign text-muted",
	StatusOK:           "glyphicon glyphicon-ok-sign text-success",
	StatusDown:         "glyphicon glyphicon-minus-sign text-danger",
	StatusFaulty:       "glyphicon glyphicon-exclamation-sign text-danger",
	StatusFlagNotFound: "glyphicon glyphicon-question-sign text-warning",
	StatusRecovering:   "glyphicon glyphicon-plus-sign text-info",
}

// Valid reports whether s belongs to the known enumeration.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "STATUS(" + strconv.Itoa(int(s)) + ")"
}

// Class returns the display class for the status, or "" for unknown codes.
func (s Status) Class() string {
	return statusClasses[s]
}

// Key is the key used by the status-descriptions table of a payload.
func (s Status) Key() string {
	return strconv.Itoa(int(s))
}

// FlagstoreIcon returns the icon classes used for a flagstore in the scoreboard.
func (s Status) FlagstoreIcon() string {
	if icon, ok := flagstoreIcons[s]; ok {
		return icon
	}
	return flagstoreIcons[StatusNotChecked]
}

// CheckStatus is a status as it appears in payloads. The gameserver sends either an
// integer code or "" for checks that have no result yet.
type CheckStatus struct {
	Code  Status
	Unset bool
}

// Checked wraps a known code.
func Checked(code Status) CheckStatus {
	return CheckStatus{Code: code}
}

// Unchecked is the "" sentinel.
func Unchecked() CheckStatus {
	return CheckStatus{Code: StatusNotChecked, Unset: true}
}

// Effective returns the code used for display lookups.
func (c CheckStatus) Effective() Status {
	if c.Unset {
		return StatusNotChecked
	}
	return c.Code
}

// Known reports whether the status is unset or one of the defined codes.
func (c CheckStatus) Known() bool {
	return c.Unset || c.Code.Valid()
}

// Class returns the display class. Unset statuses are always muted.
func (c CheckStatus) Class() string {
	if c.Unset {
		return statusClasses[StatusNotChecked]
	}
	return c.Code.Class()
}

func (c *CheckStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw != "" {
			return fmt.Errorf("status: unexpected string %q", raw)
		}
		*c = Unchecked()
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	*c = Checked(Status(code))
	return nil
}

func (c CheckStatus) MarshalJSON() ([]byte, error) {
	if c.Unset {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(int(c.Code))), nil
}

// StatusDescriptions maps decimal status codes to human readable descriptions.
type StatusDescriptions map[string]string

// Describe looks up the description for c. Unset statuses use the NOT_CHECKED entry.
func (d StatusDescriptions) Describe(c CheckStatus) string {
	code := c.Effective()
	if desc, ok := d[code.Key()]; ok {
		return desc
	}
	if code == StatusNotChecked {
		return "not checked"
	}
	return code.String()
}
