package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"kith/api/internal/authpw"
	"kith/api/internal/channel"
	"kith/api/internal/config"
	"kith/api/internal/linkedin"
	"kith/api/internal/social"
	"kith/api/internal/store"
)

// fakeStore implements dataStore with overridable function fields.
type fakeStore struct {
	createUser     func(ctx context.Context, user store.User) error
	getUserByEmail func(ctx context.Context, email string) (store.User, error)
	getUserByID    func(ctx context.Context, id string) (store.User, error)

	insertPerson       func(ctx context.Context, person store.Person) error
	getPerson          func(ctx context.Context, userID, personID string) (store.Person, error)
	listPeople         func(ctx context.Context, userID string) ([]store.Person, error)
	updatePerson       func(ctx context.Context, person store.Person) error
	deletePerson       func(ctx context.Context, userID, personID string) error
	setPersonAvatarKey func(ctx context.Context, userID, personID, key string) error

	replaceChannels func(ctx context.Context, userID, personID string, kind channel.Kind, entries []store.ChannelRow) error
	attachChannels  func(ctx context.Context, userID string, personIDs []string) (map[string]store.ChannelSet, error)

	upsertOrDeleteSocialLink   func(ctx context.Context, userID, personID string, platform social.Platform, handle string, connectedAt *time.Time) error
	findPersonIDBySocialHandle func(ctx context.Context, userID string, platform social.Platform, handle string) (string, error)
	attachSocial               func(ctx context.Context, userID string, personIDs []string) (map[string]social.Links, error)

	insertGroup        func(ctx context.Context, group store.Group) error
	listGroups         func(ctx context.Context, userID string) ([]store.Group, error)
	deleteGroup        func(ctx context.Context, userID, groupID string) error
	addGroupMember     func(ctx context.Context, userID, groupID, personID string) error
	removeGroupMember  func(ctx context.Context, userID, groupID, personID string) error
	listGroupMemberIDs func(ctx context.Context, userID, groupID string) ([]string, error)

	insertActivity func(ctx context.Context, activity store.Activity) error
	listActivities func(ctx context.Context, userID, personID string, limit int) ([]store.Activity, error)

	ping func(ctx context.Context) error
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUser != nil {
		return f.createUser(ctx, user)
	}
	return nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmail != nil {
		return f.getUserByEmail(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByID != nil {
		return f.getUserByID(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeStore) InsertPerson(ctx context.Context, person store.Person) error {
	if f.insertPerson != nil {
		return f.insertPerson(ctx, person)
	}
	return nil
}

func (f *fakeStore) GetPerson(ctx context.Context, userID, personID string) (store.Person, error) {
	if f.getPerson != nil {
		return f.getPerson(ctx, userID, personID)
	}
	return store.Person{ID: personID, UserID: userID, FirstName: "Test"}, nil
}

func (f *fakeStore) ListPeople(ctx context.Context, userID string) ([]store.Person, error) {
	if f.listPeople != nil {
		return f.listPeople(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) UpdatePerson(ctx context.Context, person store.Person) error {
	if f.updatePerson != nil {
		return f.updatePerson(ctx, person)
	}
	return nil
}

func (f *fakeStore) DeletePerson(ctx context.Context, userID, personID string) error {
	if f.deletePerson != nil {
		return f.deletePerson(ctx, userID, personID)
	}
	return nil
}

func (f *fakeStore) SetPersonAvatarKey(ctx context.Context, userID, personID, key string) error {
	if f.setPersonAvatarKey != nil {
		return f.setPersonAvatarKey(ctx, userID, personID, key)
	}
	return nil
}

func (f *fakeStore) ReplaceChannels(ctx context.Context, userID, personID string, kind channel.Kind, entries []store.ChannelRow) error {
	if f.replaceChannels != nil {
		return f.replaceChannels(ctx, userID, personID, kind, entries)
	}
	return nil
}

func (f *fakeStore) AttachChannels(ctx context.Context, userID string, personIDs []string) (map[string]store.ChannelSet, error) {
	if f.attachChannels != nil {
		return f.attachChannels(ctx, userID, personIDs)
	}
	result := make(map[string]store.ChannelSet, len(personIDs))
	for _, id := range personIDs {
		result[id] = store.ChannelSet{}
	}
	return result, nil
}

func (f *fakeStore) UpsertOrDeleteSocialLink(ctx context.Context, userID, personID string, platform social.Platform, handle string, connectedAt *time.Time) error {
	if f.upsertOrDeleteSocialLink != nil {
		return f.upsertOrDeleteSocialLink(ctx, userID, personID, platform, handle, connectedAt)
	}
	return nil
}

func (f *fakeStore) FindPersonIDBySocialHandle(ctx context.Context, userID string, platform social.Platform, handle string) (string, error) {
	if f.findPersonIDBySocialHandle != nil {
		return f.findPersonIDBySocialHandle(ctx, userID, platform, handle)
	}
	return "", nil
}

func (f *fakeStore) AttachSocial(ctx context.Context, userID string, personIDs []string) (map[string]social.Links, error) {
	if f.attachSocial != nil {
		return f.attachSocial(ctx, userID, personIDs)
	}
	result := make(map[string]social.Links, len(personIDs))
	for _, id := range personIDs {
		result[id] = social.Links{}
	}
	return result, nil
}

func (f *fakeStore) InsertGroup(ctx context.Context, group store.Group) error {
	if f.insertGroup != nil {
		return f.insertGroup(ctx, group)
	}
	return nil
}

func (f *fakeStore) ListGroups(ctx context.Context, userID string) ([]store.Group, error) {
	if f.listGroups != nil {
		return f.listGroups(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) DeleteGroup(ctx context.Context, userID, groupID string) error {
	if f.deleteGroup != nil {
		return f.deleteGroup(ctx, userID, groupID)
	}
	return nil
}

func (f *fakeStore) AddGroupMember(ctx context.Context, userID, groupID, personID string) error {
	if f.addGroupMember != nil {
		return f.addGroupMember(ctx, userID, groupID, personID)
	}
	return nil
}

func (f *fakeStore) RemoveGroupMember(ctx context.Context, userID, groupID, personID string) error {
	if f.removeGroupMember != nil {
		return f.removeGroupMember(ctx, userID, groupID, personID)
	}
	return nil
}

func (f *fakeStore) ListGroupMemberIDs(ctx context.Context, userID, groupID string) ([]string, error) {
	if f.listGroupMemberIDs != nil {
		return f.listGroupMemberIDs(ctx, userID, groupID)
	}
	return nil, nil
}

func (f *fakeStore) InsertActivity(ctx context.Context, activity store.Activity) error {
	if f.insertActivity != nil {
		return f.insertActivity(ctx, activity)
	}
	return nil
}

func (f *fakeStore) ListActivities(ctx context.Context, userID, personID string, limit int) ([]store.Activity, error) {
	if f.listActivities != nil {
		return f.listActivities(ctx, userID, personID, limit)
	}
	return nil, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.ping != nil {
		return f.ping(ctx)
	}
	return nil
}

// fakeSessions is an in-memory sessionStore.
type fakeSessions struct {
	saved   map[string]store.User
	revoked []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{saved: make(map[string]store.User)}
}

func (f *fakeSessions) SaveRefreshSession(ctx context.Context, token string, user store.User, expiresAt time.Time) error {
	f.saved[token] = user
	return nil
}

func (f *fakeSessions) LookupRefreshSession(ctx context.Context, token string) (store.User, error) {
	user, ok := f.saved[token]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeSessions) RevokeRefreshSession(ctx context.Context, token string) error {
	delete(f.saved, token)
	f.revoked = append(f.revoked, token)
	return nil
}

// fakeImporter implements importEngine.
type fakeImporter struct {
	prepare func(ctx context.Context, userID string, rows []linkedin.Row) ([]linkedin.PreparedContact, error)
	commit  func(ctx context.Context, userID string, selected []linkedin.PreparedContact) (linkedin.Result, error)
}

func (f *fakeImporter) Prepare(ctx context.Context, userID string, rows []linkedin.Row) ([]linkedin.PreparedContact, error) {
	if f.prepare != nil {
		return f.prepare(ctx, userID, rows)
	}
	return nil, nil
}

func (f *fakeImporter) Commit(ctx context.Context, userID string, selected []linkedin.PreparedContact) (linkedin.Result, error) {
	if f.commit != nil {
		return f.commit(ctx, userID, selected)
	}
	return linkedin.Result{}, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func newTestService(fake *fakeStore) *Service {
	return &Service{
		cfg:       testConfig(),
		store:     fake,
		sessions:  newFakeSessions(),
		passwords: authpw.NewService(fake),
		importer:  &fakeImporter{},
	}
}

func testSession() Session {
	return Session{UserID: "usr_1", UserName: "Avery"}
}

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("bad test fixture: %v", err)
	}
	return value
}

func TestCreatePersonDerivesNameFromSocialIdentity(t *testing.T) {
	var inserted store.Person
	fake := &fakeStore{
		insertPerson: func(_ context.Context, person store.Person) error {
			inserted = person
			return nil
		},
		getPerson: func(_ context.Context, userID, personID string) (store.Person, error) {
			return inserted, nil
		},
	}
	svc := newTestService(fake)

	payload, err := svc.CreatePerson(context.Background(), testSession(), CreatePersonInput{
		Username: "john.doe",
	})
	if err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}
	if payload.FirstName != "John" || payload.LastName != "Doe" {
		t.Errorf("expected derived name John Doe, got %q %q", payload.FirstName, payload.LastName)
	}
	if inserted.UserID != "usr_1" {
		t.Errorf("expected person scoped to usr_1, got %q", inserted.UserID)
	}
}

func TestCreatePersonRequiresFirstName(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreatePerson(context.Background(), testSession(), CreatePersonInput{Title: "CEO"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
}

func TestSavePhonesEnforcesSinglePreferred(t *testing.T) {
	var replaced []store.ChannelRow
	var replacedKind channel.Kind
	fake := &fakeStore{
		replaceChannels: func(_ context.Context, _, _ string, kind channel.Kind, entries []store.ChannelRow) error {
			replacedKind = kind
			replaced = entries
			return nil
		},
	}
	svc := newTestService(fake)

	raw := decodeJSON(t, `[
		{"prefix": "+1", "value": "111", "preferred": true},
		{"prefix": "+1", "value": "222", "preferred": true}
	]`)
	entries, err := svc.SavePhones(context.Background(), testSession(), "per_1", raw)
	if err != nil {
		t.Fatalf("SavePhones failed: %v", err)
	}
	if replacedKind != channel.KindPhone {
		t.Errorf("expected phone kind, got %s", replacedKind)
	}
	if len(replaced) != 2 || !replaced[0].Preferred || replaced[1].Preferred {
		t.Errorf("expected only first entry preferred, got %+v", replaced)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 returned entries, got %d", len(entries))
	}
}

func TestSavePhonesSurfacesValidationError(t *testing.T) {
	called := false
	fake := &fakeStore{
		replaceChannels: func(_ context.Context, _, _ string, _ channel.Kind, _ []store.ChannelRow) error {
			called = true
			return nil
		},
	}
	svc := newTestService(fake)

	_, err := svc.SavePhones(context.Background(), testSession(), "per_1", decodeJSON(t, `[{"value": "111"}]`))
	var validationErr *channel.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Field != "phones[0].prefix" {
		t.Errorf("expected field phones[0].prefix, got %q", validationErr.Field)
	}
	if called {
		t.Error("expected no replace on validation failure")
	}
}

func TestSaveEmailsReplacesWholesale(t *testing.T) {
	var replaced []store.ChannelRow
	fake := &fakeStore{
		replaceChannels: func(_ context.Context, _, _ string, kind channel.Kind, entries []store.ChannelRow) error {
			if kind != channel.KindEmail {
				t.Errorf("expected email kind, got %s", kind)
			}
			replaced = entries
			return nil
		},
	}
	svc := newTestService(fake)

	raw := decodeJSON(t, `[{"value": "a@example.com", "type": "work"}]`)
	if _, err := svc.SaveEmails(context.Background(), testSession(), "per_1", raw); err != nil {
		t.Fatalf("SaveEmails failed: %v", err)
	}
	if len(replaced) != 1 || replaced[0].Type != channel.TypeWork || !replaced[0].Preferred {
		t.Errorf("expected single preferred work email, got %+v", replaced)
	}
}

func TestSaveSocialLinkRejectsUnknownPlatform(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SaveSocialLink(context.Background(), testSession(), "per_1", "myspace", "tom")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422 DomainError, got %v", err)
	}
}

func TestSaveSocialLinkUpserts(t *testing.T) {
	var gotPlatform social.Platform
	var gotHandle string
	fake := &fakeStore{
		upsertOrDeleteSocialLink: func(_ context.Context, _, _ string, platform social.Platform, handle string, _ *time.Time) error {
			gotPlatform = platform
			gotHandle = handle
			return nil
		},
	}
	svc := newTestService(fake)

	if _, err := svc.SaveSocialLink(context.Background(), testSession(), "per_1", "instagram", "jane.doe"); err != nil {
		t.Fatalf("SaveSocialLink failed: %v", err)
	}
	if gotPlatform != social.Instagram || gotHandle != "jane.doe" {
		t.Errorf("expected instagram/jane.doe, got %s/%q", gotPlatform, gotHandle)
	}
}

func TestLookupSocial(t *testing.T) {
	fake := &fakeStore{
		findPersonIDBySocialHandle: func(_ context.Context, _ string, platform social.Platform, handle string) (string, error) {
			if platform == social.LinkedIn && handle == "in/jane" {
				return "per_7", nil
			}
			return "", nil
		},
	}
	svc := newTestService(fake)

	personID, err := svc.LookupSocial(context.Background(), testSession(), "linkedin", "in/jane")
	if err != nil {
		t.Fatalf("LookupSocial failed: %v", err)
	}
	if personID != "per_7" {
		t.Errorf("expected per_7, got %q", personID)
	}

	personID, err = svc.LookupSocial(context.Background(), testSession(), "linkedin", "in/nobody")
	if err != nil || personID != "" {
		t.Errorf("expected empty miss, got %q, %v", personID, err)
	}
}

func TestCommitImportFiltersBySelection(t *testing.T) {
	var committed []linkedin.PreparedContact
	svc := newTestService(&fakeStore{})
	svc.importer = &fakeImporter{
		commit: func(_ context.Context, _ string, selected []linkedin.PreparedContact) (linkedin.Result, error) {
			committed = selected
			return linkedin.Result{Imported: len(selected)}, nil
		},
	}

	contacts := []linkedin.PreparedContact{
		{TempID: "b-0", FirstName: "A", IsValid: true},
		{TempID: "b-1", FirstName: "B", IsValid: true},
		{TempID: "b-2", FirstName: "C", IsValid: true},
	}
	result, err := svc.CommitImport(context.Background(), testSession(), contacts, []string{"b-0", "b-2"})
	if err != nil {
		t.Fatalf("CommitImport failed: %v", err)
	}
	if len(committed) != 2 || committed[0].TempID != "b-0" || committed[1].TempID != "b-2" {
		t.Errorf("expected b-0 and b-2 committed, got %+v", committed)
	}
	if result.Imported != 2 {
		t.Errorf("expected 2 imported, got %+v", result)
	}
}

func TestSignUpIssuesWorkingSession(t *testing.T) {
	users := make(map[string]store.User)
	fake := &fakeStore{
		createUser: func(_ context.Context, user store.User) error {
			users[user.Email] = user
			return nil
		},
		getUserByEmail: func(_ context.Context, email string) (store.User, error) {
			if user, ok := users[email]; ok {
				return user, nil
			}
			return store.User{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fake)

	session, err := svc.SignUp(context.Background(), authpw.SignUpRequest{
		Email:       "avery@example.com",
		Password:    "correct-horse",
		DisplayName: "Avery",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	if parsed.UserID != session.UserID || parsed.UserName != "Avery" {
		t.Errorf("unexpected parsed session: %+v", parsed)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fake := &fakeStore{
		getUserByID: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, DisplayName: "Avery"}, nil
		},
	}
	svc := newTestService(fake)
	sessions := svc.sessions.(*fakeSessions)

	first, err := svc.issueSession(context.Background(), store.User{ID: "usr_1", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("issueSession failed: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("expected a rotated refresh token")
	}
	if len(sessions.revoked) != 1 {
		t.Errorf("expected old token revoked, got %v", sessions.revoked)
	}

	// The original refresh token must no longer work.
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err == nil {
		t.Error("expected Refresh to fail for a rotated-out token")
	}
}

