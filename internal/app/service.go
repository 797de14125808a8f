package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"kith/api/internal/auth"
	"kith/api/internal/authpw"
	"kith/api/internal/avatar"
	"kith/api/internal/channel"
	"kith/api/internal/config"
	"kith/api/internal/identity"
	"kith/api/internal/linkedin"
	"kith/api/internal/search"
	"kith/api/internal/session"
	"kith/api/internal/social"
	"kith/api/internal/store"
	"kith/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

// PersonPayload is the wire shape for a person, with channels and social
// links attached.
type PersonPayload struct {
	ID         string              `json:"id"`
	FirstName  string              `json:"firstName"`
	MiddleName string              `json:"middleName,omitempty"`
	LastName   string              `json:"lastName,omitempty"`
	Title      string              `json:"title,omitempty"`
	AvatarURL  string              `json:"avatarUrl,omitempty"`
	ImportedAt *time.Time          `json:"importedAt,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
	Phones     []channel.PhoneEntry `json:"phones"`
	Emails     []channel.EmailEntry `json:"emails"`
	Social     social.Links        `json:"socialLinks"`
}

// CreatePersonInput creates a person either from explicit name fields or,
// when FirstName is blank, from a social display name / username pair.
type CreatePersonInput struct {
	FirstName   string            `json:"firstName"`
	MiddleName  string            `json:"middleName"`
	LastName    string            `json:"lastName"`
	Title       string            `json:"title"`
	DisplayName string            `json:"displayName"`
	Username    string            `json:"username"`
	Phones      any               `json:"phones"`
	Emails      any               `json:"emails"`
	Social      map[string]string `json:"socialLinks"`
}

type UpdatePersonInput struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	Title      string `json:"title"`
}

type ActivityInput struct {
	Kind       string     `json:"kind"`
	Note       string     `json:"note"`
	HappenedAt *time.Time `json:"happenedAt"`
}

// ImportPreviewPayload is the response of the import preview step.
type ImportPreviewPayload struct {
	Contacts        []linkedin.PreparedContact `json:"contacts"`
	SelectedTempIDs []string                   `json:"selectedTempIds"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)

	InsertPerson(context.Context, store.Person) error
	GetPerson(ctx context.Context, userID, personID string) (store.Person, error)
	ListPeople(ctx context.Context, userID string) ([]store.Person, error)
	UpdatePerson(context.Context, store.Person) error
	DeletePerson(ctx context.Context, userID, personID string) error
	SetPersonAvatarKey(ctx context.Context, userID, personID, key string) error

	ReplaceChannels(ctx context.Context, userID, personID string, kind channel.Kind, entries []store.ChannelRow) error
	AttachChannels(ctx context.Context, userID string, personIDs []string) (map[string]store.ChannelSet, error)

	UpsertOrDeleteSocialLink(ctx context.Context, userID, personID string, platform social.Platform, handle string, connectedAt *time.Time) error
	FindPersonIDBySocialHandle(ctx context.Context, userID string, platform social.Platform, handle string) (string, error)
	AttachSocial(ctx context.Context, userID string, personIDs []string) (map[string]social.Links, error)

	InsertGroup(context.Context, store.Group) error
	ListGroups(ctx context.Context, userID string) ([]store.Group, error)
	DeleteGroup(ctx context.Context, userID, groupID string) error
	AddGroupMember(ctx context.Context, userID, groupID, personID string) error
	RemoveGroupMember(ctx context.Context, userID, groupID, personID string) error
	ListGroupMemberIDs(ctx context.Context, userID, groupID string) ([]string, error)

	InsertActivity(context.Context, store.Activity) error
	ListActivities(ctx context.Context, userID, personID string, limit int) ([]store.Activity, error)

	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, token string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, token string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, token string) error
}

type importEngine interface {
	Prepare(ctx context.Context, userID string, rows []linkedin.Row) ([]linkedin.PreparedContact, error)
	Commit(ctx context.Context, userID string, selected []linkedin.PreparedContact) (linkedin.Result, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	passwords *authpw.Service
	importer  importEngine
	search    *search.Service
	avatars   *avatar.Store
}

func New(cfg config.Config, pg *store.PostgresStore, sessions *session.RedisStore, searchSvc *search.Service, avatars *avatar.Store) *Service {
	return &Service{
		cfg:       cfg,
		store:     pg,
		sessions:  sessions,
		passwords: authpw.NewService(pg),
		importer:  linkedin.NewEngine(pg),
		search:    searchSvc,
		avatars:   avatars,
	}
}

// Auth / sessions

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.passwords.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// session pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	user, err := s.sessions.LookupRefreshSession(ctx, refreshToken)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, refreshToken); err != nil {
		return Session{}, err
	}
	// Pick up display name changes made since the token was minted.
	if fresh, err := s.store.GetUserByID(ctx, user.ID); err == nil {
		user = fresh
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		TokenID:     jti,
		ExpiresAt:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, refresh, user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.UserID,
		UserName:  claims.DisplayName,
		JTI:       claims.TokenID,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, refreshToken)
}

// People

func (s *Service) ListPeople(ctx context.Context, session Session) ([]PersonPayload, error) {
	people, err := s.store.ListPeople(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(people))
	for _, person := range people {
		ids = append(ids, person.ID)
	}
	channels, err := s.store.AttachChannels(ctx, session.UserID, ids)
	if err != nil {
		return nil, err
	}
	links, err := s.store.AttachSocial(ctx, session.UserID, ids)
	if err != nil {
		return nil, err
	}

	payloads := make([]PersonPayload, 0, len(people))
	for _, person := range people {
		payloads = append(payloads, personPayload(person, channels[person.ID], links[person.ID]))
	}
	return payloads, nil
}

func (s *Service) GetPerson(ctx context.Context, session Session, personID string) (PersonPayload, error) {
	person, err := s.store.GetPerson(ctx, session.UserID, personID)
	if err != nil {
		return PersonPayload{}, err
	}
	channels, err := s.store.AttachChannels(ctx, session.UserID, []string{person.ID})
	if err != nil {
		return PersonPayload{}, err
	}
	links, err := s.store.AttachSocial(ctx, session.UserID, []string{person.ID})
	if err != nil {
		return PersonPayload{}, err
	}

	payload := personPayload(person, channels[person.ID], links[person.ID])
	if s.avatars != nil && person.AvatarKey != "" {
		if url, err := s.avatars.URL(ctx, person.AvatarKey); err == nil {
			payload.AvatarURL = url
		}
	}
	return payload, nil
}

func (s *Service) CreatePerson(ctx context.Context, session Session, input CreatePersonInput) (PersonPayload, error) {
	first := strings.TrimSpace(input.FirstName)
	middle := strings.TrimSpace(input.MiddleName)
	last := strings.TrimSpace(input.LastName)

	// No explicit name: derive one from the social identity.
	if first == "" && (strings.TrimSpace(input.DisplayName) != "" || strings.TrimSpace(input.Username) != "") {
		parsed := identity.Parse(input.DisplayName, input.Username)
		first, middle, last = parsed.FirstName, parsed.MiddleName, parsed.LastName
	}
	if first == "" {
		return PersonPayload{}, domainError(422, "VALIDATION_ERROR", "firstName is required", nil)
	}

	person := store.Person{
		ID:         util.NewID("per"),
		UserID:     session.UserID,
		FirstName:  first,
		MiddleName: middle,
		LastName:   last,
		Title:      strings.TrimSpace(input.Title),
	}
	if err := s.store.InsertPerson(ctx, person); err != nil {
		return PersonPayload{}, err
	}

	if input.Phones != nil {
		if _, err := s.SavePhones(ctx, session, person.ID, input.Phones); err != nil {
			return PersonPayload{}, err
		}
	}
	if input.Emails != nil {
		if _, err := s.SaveEmails(ctx, session, person.ID, input.Emails); err != nil {
			return PersonPayload{}, err
		}
	}
	for raw, handle := range input.Social {
		if _, err := s.SaveSocialLink(ctx, session, person.ID, raw, handle); err != nil {
			return PersonPayload{}, err
		}
	}

	s.indexPerson(person)
	return s.GetPerson(ctx, session, person.ID)
}

func (s *Service) UpdatePerson(ctx context.Context, session Session, personID string, input UpdatePersonInput) (PersonPayload, error) {
	person, err := s.store.GetPerson(ctx, session.UserID, personID)
	if err != nil {
		return PersonPayload{}, err
	}

	first := strings.TrimSpace(input.FirstName)
	if first == "" {
		return PersonPayload{}, domainError(422, "VALIDATION_ERROR", "firstName is required", nil)
	}
	person.FirstName = first
	person.MiddleName = strings.TrimSpace(input.MiddleName)
	person.LastName = strings.TrimSpace(input.LastName)
	person.Title = strings.TrimSpace(input.Title)

	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return PersonPayload{}, err
	}
	s.indexPerson(person)
	return s.GetPerson(ctx, session, person.ID)
}

func (s *Service) DeletePerson(ctx context.Context, session Session, personID string) error {
	person, err := s.store.GetPerson(ctx, session.UserID, personID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePerson(ctx, session.UserID, personID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeletePerson(personID)
	}
	if s.avatars != nil && person.AvatarKey != "" {
		_ = s.avatars.Remove(ctx, person.AvatarKey)
	}
	return nil
}

// Channels

// SavePhones replaces a person's phone list wholesale. raw is the decoded
// JSON array from the request body.
func (s *Service) SavePhones(ctx context.Context, session Session, personID string, raw any) ([]channel.PhoneEntry, error) {
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return nil, err
	}
	entries, err := channel.ParsePhoneEntries("phones", raw)
	if err != nil {
		return nil, err
	}
	entries = channel.EnsurePreferredPhones(entries)

	rows := make([]store.ChannelRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, store.ChannelRow{
			Prefix:    entry.Prefix,
			Value:     entry.Value,
			Type:      entry.Type,
			Preferred: entry.Preferred,
		})
	}
	if err := s.store.ReplaceChannels(ctx, session.UserID, personID, channel.KindPhone, rows); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveEmails replaces a person's email list wholesale.
func (s *Service) SaveEmails(ctx context.Context, session Session, personID string, raw any) ([]channel.EmailEntry, error) {
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return nil, err
	}
	entries, err := channel.ParseEmailEntries("emails", raw)
	if err != nil {
		return nil, err
	}
	entries = channel.EnsurePreferredEmails(entries)

	rows := make([]store.ChannelRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, store.ChannelRow{
			Value:     entry.Value,
			Type:      entry.Type,
			Preferred: entry.Preferred,
		})
	}
	if err := s.store.ReplaceChannels(ctx, session.UserID, personID, channel.KindEmail, rows); err != nil {
		return nil, err
	}
	return entries, nil
}

// Social

// SaveSocialLink upserts one platform handle for a person; a blank handle
// deletes the link. Returns the person's full link set after the change.
func (s *Service) SaveSocialLink(ctx context.Context, session Session, personID, platformRaw, handle string) (social.Links, error) {
	platform, ok := social.ParsePlatform(platformRaw)
	if !ok {
		return social.Links{}, domainError(422, "VALIDATION_ERROR", "unknown platform "+platformRaw, nil)
	}
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return social.Links{}, err
	}

	now := time.Now()
	if err := s.store.UpsertOrDeleteSocialLink(ctx, session.UserID, personID, platform, handle, &now); err != nil {
		return social.Links{}, err
	}

	links, err := s.store.AttachSocial(ctx, session.UserID, []string{personID})
	if err != nil {
		return social.Links{}, err
	}
	return links[personID], nil
}

// LookupSocial resolves a platform handle to a person id, "" when no match.
func (s *Service) LookupSocial(ctx context.Context, session Session, platformRaw, handle string) (string, error) {
	platform, ok := social.ParsePlatform(platformRaw)
	if !ok {
		return "", domainError(422, "VALIDATION_ERROR", "unknown platform "+platformRaw, nil)
	}
	return s.store.FindPersonIDBySocialHandle(ctx, session.UserID, platform, handle)
}

// Avatars

func (s *Service) UploadAvatar(ctx context.Context, session Session, personID, contentType string, body io.Reader, size int64) (string, error) {
	if s.avatars == nil {
		return "", domainError(503, "AVATARS_UNAVAILABLE", "Avatar storage not configured", nil)
	}
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return "", err
	}

	key, err := s.avatars.Upload(ctx, session.UserID, personID, contentType, body, size)
	if err != nil {
		var unsupported avatar.ErrUnsupportedType
		if errors.As(err, &unsupported) {
			return "", domainError(422, "VALIDATION_ERROR", unsupported.Error(), nil)
		}
		return "", err
	}
	if err := s.store.SetPersonAvatarKey(ctx, session.UserID, personID, key); err != nil {
		return "", err
	}
	return s.avatars.URL(ctx, key)
}

func (s *Service) AvatarURL(ctx context.Context, session Session, personID string) (string, error) {
	if s.avatars == nil {
		return "", domainError(503, "AVATARS_UNAVAILABLE", "Avatar storage not configured", nil)
	}
	person, err := s.store.GetPerson(ctx, session.UserID, personID)
	if err != nil {
		return "", err
	}
	if person.AvatarKey == "" {
		return "", domainError(404, "NOT_FOUND", "Person has no avatar", nil)
	}
	return s.avatars.URL(ctx, person.AvatarKey)
}

// LinkedIn import

func (s *Service) PreviewImport(ctx context.Context, session Session, rows []linkedin.Row) (ImportPreviewPayload, error) {
	contacts, err := s.importer.Prepare(ctx, session.UserID, rows)
	if err != nil {
		return ImportPreviewPayload{}, err
	}
	return ImportPreviewPayload{
		Contacts:        contacts,
		SelectedTempIDs: linkedin.DefaultSelection(contacts),
	}, nil
}

// CommitImport writes the selected subset of a previewed batch.
func (s *Service) CommitImport(ctx context.Context, session Session, contacts []linkedin.PreparedContact, selectedTempIDs []string) (linkedin.Result, error) {
	selected := make(map[string]struct{}, len(selectedTempIDs))
	for _, id := range selectedTempIDs {
		selected[id] = struct{}{}
	}
	chosen := make([]linkedin.PreparedContact, 0, len(contacts))
	for _, contact := range contacts {
		if _, ok := selected[contact.TempID]; ok {
			chosen = append(chosen, contact)
		}
	}

	result, err := s.importer.Commit(ctx, session.UserID, chosen)
	if err != nil {
		return result, err
	}
	s.reindexPeople(ctx, session.UserID)
	return result, nil
}

// Search

func (s *Service) SearchPeople(ctx context.Context, session Session, text string, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(ctx, search.Query{UserID: session.UserID, Text: text, Limit: limit})
}

func (s *Service) indexPerson(person store.Person) {
	if s.search == nil {
		return
	}
	s.search.IndexPerson(search.PersonRecord{
		ID:     person.ID,
		UserID: person.UserID,
		Name:   person.FullName(),
		Title:  person.Title,
	})
}

func (s *Service) reindexPeople(ctx context.Context, userID string) {
	if s.search == nil {
		return
	}
	people, err := s.store.ListPeople(ctx, userID)
	if err != nil {
		return
	}
	records := make([]search.PersonRecord, 0, len(people))
	for _, person := range people {
		records = append(records, search.PersonRecord{
			ID:     person.ID,
			UserID: person.UserID,
			Name:   person.FullName(),
			Title:  person.Title,
		})
	}
	s.search.IndexPeople(records)
}

// Groups

func (s *Service) CreateGroup(ctx context.Context, session Session, name string) (store.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Group{}, domainError(422, "VALIDATION_ERROR", "name is required", nil)
	}
	group := store.Group{
		ID:     util.NewID("grp"),
		UserID: session.UserID,
		Name:   name,
	}
	if err := s.store.InsertGroup(ctx, group); err != nil {
		return store.Group{}, err
	}
	return group, nil
}

func (s *Service) ListGroups(ctx context.Context, session Session) ([]store.Group, error) {
	return s.store.ListGroups(ctx, session.UserID)
}

func (s *Service) DeleteGroup(ctx context.Context, session Session, groupID string) error {
	return s.store.DeleteGroup(ctx, session.UserID, groupID)
}

func (s *Service) AddGroupMember(ctx context.Context, session Session, groupID, personID string) error {
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return err
	}
	return s.store.AddGroupMember(ctx, session.UserID, groupID, personID)
}

func (s *Service) RemoveGroupMember(ctx context.Context, session Session, groupID, personID string) error {
	return s.store.RemoveGroupMember(ctx, session.UserID, groupID, personID)
}

// ListGroupMembers returns the group's people sorted by name.
func (s *Service) ListGroupMembers(ctx context.Context, session Session, groupID string) ([]PersonPayload, error) {
	ids, err := s.store.ListGroupMemberIDs(ctx, session.UserID, groupID)
	if err != nil {
		return nil, err
	}

	payloads := make([]PersonPayload, 0, len(ids))
	channels, err := s.store.AttachChannels(ctx, session.UserID, ids)
	if err != nil {
		return nil, err
	}
	links, err := s.store.AttachSocial(ctx, session.UserID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		person, err := s.store.GetPerson(ctx, session.UserID, id)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, personPayload(person, channels[id], links[id]))
	}
	sort.Slice(payloads, func(i, j int) bool {
		if payloads[i].LastName != payloads[j].LastName {
			return payloads[i].LastName < payloads[j].LastName
		}
		return payloads[i].FirstName < payloads[j].FirstName
	})
	return payloads, nil
}

// Activities

func (s *Service) AddActivity(ctx context.Context, session Session, personID string, input ActivityInput) (store.Activity, error) {
	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		return store.Activity{}, domainError(422, "VALIDATION_ERROR", "kind is required", nil)
	}
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return store.Activity{}, err
	}

	happenedAt := time.Now()
	if input.HappenedAt != nil {
		happenedAt = *input.HappenedAt
	}
	activity := store.Activity{
		ID:         util.NewID("act"),
		UserID:     session.UserID,
		PersonID:   personID,
		Kind:       kind,
		Note:       strings.TrimSpace(input.Note),
		HappenedAt: happenedAt,
	}
	if err := s.store.InsertActivity(ctx, activity); err != nil {
		return store.Activity{}, err
	}
	return activity, nil
}

func (s *Service) ListActivities(ctx context.Context, session Session, personID string, limit int) ([]store.Activity, error) {
	if _, err := s.store.GetPerson(ctx, session.UserID, personID); err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, session.UserID, personID, limit)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func personPayload(person store.Person, channels store.ChannelSet, links social.Links) PersonPayload {
	phones := make([]channel.PhoneEntry, 0, len(channels.Phones))
	for _, row := range channels.Phones {
		phones = append(phones, channel.PhoneEntry{
			Prefix:    row.Prefix,
			Value:     row.Value,
			Type:      row.Type,
			Preferred: row.Preferred,
		})
	}
	emails := make([]channel.EmailEntry, 0, len(channels.Emails))
	for _, row := range channels.Emails {
		emails = append(emails, channel.EmailEntry{
			Value:     row.Value,
			Type:      row.Type,
			Preferred: row.Preferred,
		})
	}
	return PersonPayload{
		ID:         person.ID,
		FirstName:  person.FirstName,
		MiddleName: person.MiddleName,
		LastName:   person.LastName,
		Title:      person.Title,
		ImportedAt: person.ImportedAt,
		CreatedAt:  person.CreatedAt,
		UpdatedAt:  person.UpdatedAt,
		Phones:     phones,
		Emails:     emails,
		Social:     links,
	}
}
