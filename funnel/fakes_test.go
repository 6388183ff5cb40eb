package funnel

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"time"

	"funnelbot/models"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// markTagger marks URLs so tests can assert tagging happened, and leaves
// free text alone.
type markTagger struct{}

func (markTagger) TagURL(raw string, userID int64) string {
	return raw + "#u" + strconv.FormatInt(userID, 10)
}

func (markTagger) TagText(text string, userID int64) string { return text }

type sentMessage struct {
	UserID  int64
	Method  string // "text", "photo", "video", "album"
	Text    string // text or caption
	Ref     string
	Items   []MediaItem
	Buttons []KeyboardButton
}

type fakeSink struct {
	sent    []sentMessage
	cleared []int64

	textErr  error
	photoErr error
	videoErr error
	albumErr error

	// textErrOnce fails only the first SendText call.
	textErrOnce error
}

func (s *fakeSink) SendText(userID int64, text string, kb []KeyboardButton) error {
	if s.textErrOnce != nil {
		err := s.textErrOnce
		s.textErrOnce = nil
		return err
	}
	if s.textErr != nil {
		return s.textErr
	}
	s.sent = append(s.sent, sentMessage{UserID: userID, Method: "text", Text: text, Buttons: kb})
	return nil
}

func (s *fakeSink) SendPhoto(userID int64, ref, caption string, kb []KeyboardButton) error {
	if s.photoErr != nil {
		return s.photoErr
	}
	s.sent = append(s.sent, sentMessage{UserID: userID, Method: "photo", Text: caption, Ref: ref, Buttons: kb})
	return nil
}

func (s *fakeSink) SendVideo(userID int64, ref, caption string, kb []KeyboardButton) error {
	if s.videoErr != nil {
		return s.videoErr
	}
	s.sent = append(s.sent, sentMessage{UserID: userID, Method: "video", Text: caption, Ref: ref, Buttons: kb})
	return nil
}

func (s *fakeSink) SendMediaGroup(userID int64, items []MediaItem, caption string) error {
	if s.albumErr != nil {
		return s.albumErr
	}
	s.sent = append(s.sent, sentMessage{UserID: userID, Method: "album", Text: caption, Items: items})
	return nil
}

func (s *fakeSink) ClearReplyKeyboard(userID int64) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

type stepKey struct {
	kind models.Kind
	step int
}

type fakeStore struct {
	users     map[int64]*models.User
	templates map[stepKey]*models.MessageTemplate
	buttons   map[stepKey][]models.Button
	albums    map[stepKey][]models.AlbumItem
	schedules map[models.Kind][]*models.ScheduleEntry
	delivered []models.DeliveryLog
	clicks    []models.ClickLog
	settings  map[string]string

	nextID uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[int64]*models.User),
		templates: make(map[stepKey]*models.MessageTemplate),
		buttons:   make(map[stepKey][]models.Button),
		albums:    make(map[stepKey][]models.AlbumItem),
		schedules: make(map[models.Kind][]*models.ScheduleEntry),
		settings:  make(map[string]string),
	}
}

func (s *fakeStore) addUser(u models.User) *models.User {
	cp := u
	s.users[u.ID] = &cp
	return &cp
}

func (s *fakeStore) addTemplate(kind models.Kind, t models.MessageTemplate) {
	cp := t
	s.templates[stepKey{kind, t.Step}] = &cp
}

func (s *fakeStore) UpsertUser(id int64, username, displayName string) error {
	if u, ok := s.users[id]; ok {
		u.Username = username
		u.DisplayName = displayName
		u.Active = true
		return nil
	}
	s.users[id] = &models.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Active:      true,
		JoinedAt:    time.Now(),
	}
	return nil
}

func (s *fakeStore) GetUser(id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) MarkEngaged(id int64) error {
	if u, ok := s.users[id]; ok {
		u.Engaged = true
	}
	return nil
}

func (s *fakeStore) MarkPaid(id int64, amount int64, until, at time.Time) error {
	u, ok := s.users[id]
	if !ok || u.Paid {
		return ErrUserIneligible
	}
	u.Paid = true
	u.PaidAmount = amount
	u.PaidUntil = &until
	u.PaidAt = &at
	var kept []*models.ScheduleEntry
	for _, e := range s.schedules[models.KindFunnel] {
		if e.UserID == id && !e.Sent {
			continue
		}
		kept = append(kept, e)
	}
	s.schedules[models.KindFunnel] = kept
	return nil
}

func (s *fakeStore) MarkExpired(id int64) error {
	if u, ok := s.users[id]; ok {
		u.Paid = false
		u.PaidUntil = nil
	}
	return nil
}

func (s *fakeStore) Deactivate(id int64) error {
	if u, ok := s.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (s *fakeStore) GetTemplate(kind models.Kind, step int) (*models.MessageTemplate, error) {
	t, ok := s.templates[stepKey{kind, step}]
	if !ok {
		return nil, fmt.Errorf("%s step %d: %w", kind, step, ErrTemplateMissing)
	}
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ListTemplates(kind models.Kind) ([]models.MessageTemplate, error) {
	var out []models.MessageTemplate
	for key, t := range s.templates {
		if key.kind == kind {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}

func (s *fakeStore) GetButtons(kind models.Kind, step int) ([]models.Button, error) {
	return s.buttons[stepKey{kind, step}], nil
}

func (s *fakeStore) GetAlbum(kind models.Kind, step int) ([]models.AlbumItem, error) {
	return s.albums[stepKey{kind, step}], nil
}

func (s *fakeStore) Enroll(userID int64, kind models.Kind, anchor time.Time) error {
	u, ok := s.users[userID]
	if !ok || !u.Active {
		return ErrUserIneligible
	}
	if kind == models.KindFunnel && u.Paid {
		return ErrUserIneligible
	}
	templates, _ := s.ListTemplates(kind)
	for _, t := range templates {
		if s.hasEntry(kind, userID, t.Step) {
			continue
		}
		s.nextID++
		s.schedules[kind] = append(s.schedules[kind], &models.ScheduleEntry{
			ID:     s.nextID,
			UserID: userID,
			Step:   t.Step,
			DueAt:  anchor.Add(time.Duration(t.DelayHours * float64(time.Hour))),
		})
	}
	return nil
}

func (s *fakeStore) hasEntry(kind models.Kind, userID int64, step int) bool {
	for _, e := range s.schedules[kind] {
		if e.UserID == userID && e.Step == step {
			return true
		}
	}
	return false
}

func (s *fakeStore) DueEntries(kind models.Kind, now time.Time, limit int) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, e := range s.schedules[kind] {
		if e.Sent || e.DueAt.After(now) {
			continue
		}
		if !EligibleFor(kind, s.users[e.UserID]) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) MarkSent(kind models.Kind, entryID uint) error {
	for _, e := range s.schedules[kind] {
		if e.ID == entryID {
			if e.Sent {
				return ErrStoreConflict
			}
			e.Sent = true
			return nil
		}
	}
	return fmt.Errorf("entry %d not found", entryID)
}

func (s *fakeStore) PurgeUnsent(userID int64, kind models.Kind) (int64, error) {
	var kept []*models.ScheduleEntry
	var purged int64
	for _, e := range s.schedules[kind] {
		if e.UserID == userID && !e.Sent {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.schedules[kind] = kept
	return purged, nil
}

func (s *fakeStore) PeekNextUnsent(userID int64, kind models.Kind) (*models.ScheduleEntry, error) {
	var next *models.ScheduleEntry
	for _, e := range s.schedules[kind] {
		if e.UserID != userID || e.Sent {
			continue
		}
		if next == nil || e.Step < next.Step {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (s *fakeStore) LogDelivery(userID int64, kind models.Kind, step int, at time.Time) error {
	s.delivered = append(s.delivered, models.DeliveryLog{
		UserID: userID, Kind: string(kind), Step: step, DeliveredAt: at,
	})
	return nil
}

func (s *fakeStore) LogClick(userID int64, kind models.Kind, step int, buttonKind, buttonText string, at time.Time) error {
	s.clicks = append(s.clicks, models.ClickLog{
		UserID: userID, Kind: string(kind), Step: step,
		ButtonKind: buttonKind, ButtonText: buttonText, ClickedAt: at,
	})
	return nil
}

func (s *fakeStore) LastDeliveredStep(userID int64, kind models.Kind) (int, error) {
	max := 0
	for _, d := range s.delivered {
		if d.UserID == userID && d.Kind == string(kind) && d.Step > max {
			max = d.Step
		}
	}
	return max, nil
}

func (s *fakeStore) ExpiredOn(date time.Time) ([]models.User, error) {
	y, m, d := date.Date()
	var out []models.User
	for _, u := range s.users {
		if !u.Paid || u.PaidUntil == nil {
			continue
		}
		uy, um, ud := u.PaidUntil.Date()
		if uy == y && um == m && ud == d {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Setting(key string) (string, error) {
	return s.settings[key], nil
}

func (s *fakeStore) PruneLogs(olderThan time.Time) (int64, error) {
	var pruned int64
	var keptD []models.DeliveryLog
	for _, d := range s.delivered {
		if d.DeliveredAt.Before(olderThan) {
			pruned++
			continue
		}
		keptD = append(keptD, d)
	}
	s.delivered = keptD
	var keptC []models.ClickLog
	for _, c := range s.clicks {
		if c.ClickedAt.Before(olderThan) {
			pruned++
			continue
		}
		keptC = append(keptC, c)
	}
	s.clicks = keptC
	return pruned, nil
}

func (s *fakeStore) unsentCount(kind models.Kind, userID int64) int {
	n := 0
	for _, e := range s.schedules[kind] {
		if e.UserID == userID && !e.Sent {
			n++
		}
	}
	return n
}

var _ Store = (*fakeStore)(nil)
