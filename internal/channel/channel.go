// Package channel validates and canonicalizes multi-value contact data
// (phone numbers and email addresses) from API payloads.
package channel

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindPhone Kind = "phone"
	KindEmail Kind = "email"
)

type Type string

const (
	TypeHome Type = "home"
	TypeWork Type = "work"
)

// PhoneEntry is one canonical phone number belonging to a person.
// Entry order inside a list is meaningful: it becomes the persisted sort key.
type PhoneEntry struct {
	Prefix    string `json:"prefix"`
	Value     string `json:"value"`
	Type      Type   `json:"type"`
	Preferred bool   `json:"preferred"`
}

type EmailEntry struct {
	Value     string `json:"value"`
	Type      Type   `json:"type"`
	Preferred bool   `json:"preferred"`
}

// ValidationError reports a malformed input field. Field carries the full
// path ("phones[2].prefix") so the message can be shown next to the form
// control that produced it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ParsePhoneEntries validates a raw decoded JSON value into phone entries.
// Output order equals input order.
func ParsePhoneEntries(field string, input any) ([]PhoneEntry, error) {
	items, err := asArray(field, input)
	if err != nil {
		return nil, err
	}
	entries := make([]PhoneEntry, 0, len(items))
	for i, item := range items {
		obj, err := asObject(field, i, item)
		if err != nil {
			return nil, err
		}
		prefix, err := requiredString(field, i, obj, "prefix")
		if err != nil {
			return nil, err
		}
		value, err := requiredString(field, i, obj, "value")
		if err != nil {
			return nil, err
		}
		entries = append(entries, PhoneEntry{
			Prefix:    prefix,
			Value:     value,
			Type:      coerceType(obj["type"]),
			Preferred: coercePreferred(obj["preferred"]),
		})
	}
	return entries, nil
}

// ParseEmailEntries validates a raw decoded JSON value into email entries.
// Output order equals input order.
func ParseEmailEntries(field string, input any) ([]EmailEntry, error) {
	items, err := asArray(field, input)
	if err != nil {
		return nil, err
	}
	entries := make([]EmailEntry, 0, len(items))
	for i, item := range items {
		obj, err := asObject(field, i, item)
		if err != nil {
			return nil, err
		}
		value, err := requiredString(field, i, obj, "value")
		if err != nil {
			return nil, err
		}
		entries = append(entries, EmailEntry{
			Value:     value,
			Type:      coerceType(obj["type"]),
			Preferred: coercePreferred(obj["preferred"]),
		})
	}
	return entries, nil
}

func asArray(field string, input any) ([]any, error) {
	items, ok := input.([]any)
	if !ok {
		return nil, invalid(field, "%s must be an array", field)
	}
	return items, nil
}

func asObject(field string, index int, item any) (map[string]any, error) {
	obj, ok := item.(map[string]any)
	if !ok || obj == nil {
		return nil, invalid(
			fmt.Sprintf("%s[%d]", field, index),
			"%s[%d] must be an object", field, index,
		)
	}
	return obj, nil
}

func requiredString(field string, index int, obj map[string]any, key string) (string, error) {
	raw, _ := obj[key].(string)
	value := strings.TrimSpace(raw)
	if value == "" {
		path := fmt.Sprintf("%s[%d].%s", field, index, key)
		return "", invalid(path, "%s is required", path)
	}
	return value, nil
}

// EnsurePreferredPhones enforces the single-preferred invariant over an
// ordered list: the first preferred entry wins and later ones are cleared.
// A non-empty list with no preferred entry promotes its first entry, which
// is how removal of the preferred entry self-heals.
func EnsurePreferredPhones(entries []PhoneEntry) []PhoneEntry {
	seen := false
	for i := range entries {
		if entries[i].Preferred {
			if seen {
				entries[i].Preferred = false
			}
			seen = true
		}
	}
	if !seen && len(entries) > 0 {
		entries[0].Preferred = true
	}
	return entries
}

func EnsurePreferredEmails(entries []EmailEntry) []EmailEntry {
	seen := false
	for i := range entries {
		if entries[i].Preferred {
			if seen {
				entries[i].Preferred = false
			}
			seen = true
		}
	}
	if !seen && len(entries) > 0 {
		entries[0].Preferred = true
	}
	return entries
}

// coerceType treats anything other than the literal "work" as "home".
// Unknown or missing types are not an error.
func coerceType(raw any) Type {
	if value, ok := raw.(string); ok && value == string(TypeWork) {
		return TypeWork
	}
	return TypeHome
}

// coercePreferred accepts only a JSON boolean true; truthy values of other
// types stay false.
func coercePreferred(raw any) bool {
	value, ok := raw.(bool)
	return ok && value
}
