// Package linkedin reconciles an imported LinkedIn connection export against
// the people already stored for a user: each candidate row is validated,
// checked for an existing match by profile URL, and given a batch-scoped
// synthetic id so the client can reference it before anything is persisted.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"kith/api/internal/social"
	"kith/api/internal/store"
	"kith/api/internal/util"
)

// Row is one raw candidate contact from an imported file. The file format
// is the caller's concern; the engine starts here.
type Row struct {
	FirstName  string
	MiddleName string
	LastName   string
	Position   string
	Company    string
	ProfileURL string
}

// PreparedContact is a reconciled candidate held in memory for preview.
// TempID is stable within its batch and has no relationship to persisted
// ids, since the row may never be committed.
type PreparedContact struct {
	TempID        string `json:"tempId"`
	FirstName     string `json:"firstName"`
	MiddleName    string `json:"middleName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Position      string `json:"position,omitempty"`
	Company       string `json:"company,omitempty"`
	ProfileURL    string `json:"linkedinUrl"`
	IsValid       bool   `json:"isValid"`
	AlreadyExists bool   `json:"alreadyExists"`
}

// Result aggregates per-row commit outcomes. Row-level failures are counted,
// never thrown.
type Result struct {
	Imported int `json:"importedCount"`
	Updated  int `json:"updatedCount"`
	Skipped  int `json:"skippedCount"`
}

var profileURLPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:[a-z0-9-]+\.)?linkedin\.com/in/[^/\s?#]+`)

// IsProfileURL reports whether raw looks like a LinkedIn profile URL.
func IsProfileURL(raw string) bool {
	return profileURLPattern.MatchString(strings.TrimSpace(raw))
}

type contactStore interface {
	FindPeopleByLinkedInHandles(ctx context.Context, userID string, handles []string) (map[string]string, error)
	InsertPerson(ctx context.Context, person store.Person) error
	UpsertOrDeleteSocialLink(ctx context.Context, userID, personID string, platform social.Platform, handle string, connectedAt *time.Time) error
}

type Engine struct {
	store contactStore
	now   func() time.Time
}

func NewEngine(contactStore *store.PostgresStore) *Engine {
	return &Engine{store: contactStore, now: time.Now}
}

func newEngineWithStore(contactStore contactStore) *Engine {
	return &Engine{store: contactStore, now: time.Now}
}

// Prepare validates each row, cross-checks profile URLs against persisted
// people, and assigns batch-scoped temp ids. Output is sorted for preview:
// already-existing rows first, then importable rows, invalid rows last,
// input order breaking ties.
func (e *Engine) Prepare(ctx context.Context, userID string, rows []Row) ([]PreparedContact, error) {
	batchID := uuid.NewString()

	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		if url := strings.TrimSpace(row.ProfileURL); url != "" {
			urls = append(urls, url)
		}
	}
	existing, err := e.store.FindPeopleByLinkedInHandles(ctx, userID, urls)
	if err != nil {
		return nil, err
	}

	prepared := make([]PreparedContact, 0, len(rows))
	for i, row := range rows {
		url := strings.TrimSpace(row.ProfileURL)
		item := PreparedContact{
			TempID:     fmt.Sprintf("%s-%d", batchID, i),
			FirstName:  strings.TrimSpace(row.FirstName),
			MiddleName: strings.TrimSpace(row.MiddleName),
			LastName:   strings.TrimSpace(row.LastName),
			Position:   strings.TrimSpace(row.Position),
			Company:    strings.TrimSpace(row.Company),
			ProfileURL: url,
		}
		item.IsValid = item.FirstName != "" && IsProfileURL(url)
		_, item.AlreadyExists = existing[url]
		prepared = append(prepared, item)
	}

	SortForPreview(prepared)
	return prepared, nil
}

// SortForPreview orders prepared contacts so the user's default selection
// is visually grouped: duplicates, then new importable rows, then invalid
// rows. The sort is stable with respect to input order.
func SortForPreview(items []PreparedContact) {
	sort.SliceStable(items, func(i, j int) bool {
		return previewRank(items[i]) < previewRank(items[j])
	})
}

func previewRank(item PreparedContact) int {
	if item.AlreadyExists {
		return 0
	}
	if item.IsValid {
		return 1
	}
	return 2
}

// DefaultSelection returns the temp ids pre-selected for commit: rows that
// are valid and not already present. Existing rows are never selectable.
func DefaultSelection(items []PreparedContact) []string {
	selected := make([]string, 0, len(items))
	for _, item := range items {
		if item.IsValid && !item.AlreadyExists {
			selected = append(selected, item.TempID)
		}
	}
	return selected
}

// Commit persists the selected rows. Rows are independent: one row's
// persistence failure increments Skipped and never rolls back or blocks the
// others. Only context loss (cancellation, deadline) aborts the batch.
func (e *Engine) Commit(ctx context.Context, userID string, selected []PreparedContact) (Result, error) {
	var result Result

	urls := make([]string, 0, len(selected))
	for _, item := range selected {
		if item.ProfileURL != "" {
			urls = append(urls, item.ProfileURL)
		}
	}
	existing, err := e.store.FindPeopleByLinkedInHandles(ctx, userID, urls)
	if err != nil {
		return Result{}, err
	}

	for _, item := range selected {
		if item.AlreadyExists {
			continue
		}
		if !item.IsValid {
			result.Skipped++
			continue
		}
		if _, ok := existing[item.ProfileURL]; ok {
			result.Updated++
			continue
		}

		importedAt := e.now()
		person := store.Person{
			ID:         util.NewID("per"),
			UserID:     userID,
			FirstName:  item.FirstName,
			MiddleName: item.MiddleName,
			LastName:   item.LastName,
			Title:      SynthesizeTitle(item.Position, item.Company),
			ImportedAt: &importedAt,
		}
		if err := e.store.InsertPerson(ctx, person); err != nil {
			if systemic(ctx, err) {
				return result, err
			}
			result.Skipped++
			continue
		}
		if err := e.store.UpsertOrDeleteSocialLink(ctx, userID, person.ID, social.LinkedIn, item.ProfileURL, &importedAt); err != nil {
			if systemic(ctx, err) {
				return result, err
			}
			// Person row exists without its binding; count the row as
			// imported since it is visible and retryable.
		}
		result.Imported++
	}
	return result, nil
}

// SynthesizeTitle prefers the most complete combination of position and
// company: "{position} @{company}", then either part alone, else "".
func SynthesizeTitle(position, company string) string {
	position = strings.TrimSpace(position)
	company = strings.TrimSpace(company)
	switch {
	case position != "" && company != "":
		return position + " @" + company
	case position != "":
		return position
	case company != "":
		return company
	default:
		return ""
	}
}

func systemic(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
