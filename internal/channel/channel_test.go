package channel

import (
	"encoding/json"
	"errors"
	"testing"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return value
}

func TestParsePhoneEntriesPreservesOrder(t *testing.T) {
	input := decode(t, `[
		{"prefix": "+1", "value": "5551234"},
		{"prefix": "+44", "value": "7700900"},
		{"prefix": "+49", "value": "1512000"}
	]`)
	entries, err := ParsePhoneEntries("phones", input)
	if err != nil {
		t.Fatalf("ParsePhoneEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	want := []string{"5551234", "7700900", "1512000"}
	for i, entry := range entries {
		if entry.Value != want[i] {
			t.Errorf("entry %d: expected value %q, got %q", i, want[i], entry.Value)
		}
	}
}

func TestParsePhoneEntriesCoercesTypeAndPreferred(t *testing.T) {
	// Anything other than the literal "work" is home; anything other than
	// boolean true is not preferred.
	input := decode(t, `[
		{"prefix": " +1 ", "value": " 5551234 ", "type": "office", "preferred": 1},
		{"prefix": "+1", "value": "5555678", "type": "work", "preferred": true},
		{"prefix": "+1", "value": "5559999", "type": "WORK", "preferred": "true"}
	]`)
	entries, err := ParsePhoneEntries("phones", input)
	if err != nil {
		t.Fatalf("ParsePhoneEntries failed: %v", err)
	}

	if entries[0].Prefix != "+1" || entries[0].Value != "5551234" {
		t.Errorf("expected trimmed prefix/value, got %q %q", entries[0].Prefix, entries[0].Value)
	}
	if entries[0].Type != TypeHome || entries[0].Preferred {
		t.Errorf("entry 0: expected home/false, got %s/%v", entries[0].Type, entries[0].Preferred)
	}
	if entries[1].Type != TypeWork || !entries[1].Preferred {
		t.Errorf("entry 1: expected work/true, got %s/%v", entries[1].Type, entries[1].Preferred)
	}
	if entries[2].Type != TypeHome || entries[2].Preferred {
		t.Errorf("entry 2: expected home/false, got %s/%v", entries[2].Type, entries[2].Preferred)
	}
}

func TestParsePhoneEntriesFieldPathErrors(t *testing.T) {
	cases := []struct {
		name  string
		input any
		field string
	}{
		{"not an array", decode(t, `{"prefix": "+1"}`), "phones"},
		{"entry not an object", decode(t, `["+1 5551234"]`), "phones[0]"},
		{"missing prefix", decode(t, `[{"value": "5551234"}]`), "phones[0].prefix"},
		{"blank value", decode(t, `[{"prefix": "+1", "value": "   "}]`), "phones[0].value"},
		{"later entry", decode(t, `[{"prefix": "+1", "value": "5551234"}, {"prefix": "+1"}]`), "phones[1].value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePhoneEntries("phones", tc.input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tc.field {
				t.Errorf("expected field %q, got %q", tc.field, validationErr.Field)
			}
		})
	}
}

func TestParseEmailEntries(t *testing.T) {
	input := decode(t, `[
		{"value": "a@example.com", "type": "work", "preferred": true},
		{"value": " b@example.com ", "type": "personal"}
	]`)
	entries, err := ParseEmailEntries("emails", input)
	if err != nil {
		t.Fatalf("ParseEmailEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != TypeWork || !entries[0].Preferred {
		t.Errorf("entry 0: expected work/true, got %s/%v", entries[0].Type, entries[0].Preferred)
	}
	if entries[1].Value != "b@example.com" || entries[1].Type != TypeHome {
		t.Errorf("entry 1: expected trimmed home entry, got %+v", entries[1])
	}

	if _, err := ParseEmailEntries("emails", decode(t, `[{"type": "work"}]`)); err == nil {
		t.Error("expected error for missing value")
	}
}

func TestEnsurePreferredPhonesFirstWins(t *testing.T) {
	entries := EnsurePreferredPhones([]PhoneEntry{
		{Value: "1"},
		{Value: "2", Preferred: true},
		{Value: "3", Preferred: true},
	})
	preferred := 0
	for _, entry := range entries {
		if entry.Preferred {
			preferred++
		}
	}
	if preferred != 1 {
		t.Fatalf("expected exactly one preferred entry, got %d", preferred)
	}
	if !entries[1].Preferred {
		t.Error("expected first preferred entry to keep its flag")
	}
	if entries[2].Preferred {
		t.Error("expected later preferred flags to be cleared")
	}
}

func TestEnsurePreferredPhonesPromotesFirst(t *testing.T) {
	// Removing the preferred entry self-heals: the new first entry is
	// promoted.
	entries := EnsurePreferredPhones([]PhoneEntry{
		{Value: "2"},
		{Value: "3"},
	})
	if !entries[0].Preferred {
		t.Error("expected first entry promoted to preferred")
	}
	if entries[1].Preferred {
		t.Error("expected only one preferred entry")
	}
}

func TestEnsurePreferredPhonesEmptyList(t *testing.T) {
	if entries := EnsurePreferredPhones(nil); len(entries) != 0 {
		t.Errorf("expected empty result, got %v", entries)
	}
}

func TestEnsurePreferredEmails(t *testing.T) {
	entries := EnsurePreferredEmails([]EmailEntry{
		{Value: "a@example.com"},
		{Value: "b@example.com", Preferred: true},
	})
	if entries[0].Preferred || !entries[1].Preferred {
		t.Errorf("expected only b@example.com preferred, got %+v", entries)
	}
}
