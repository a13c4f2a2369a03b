package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"sunny-backend/internal/models"
)

// ─── Fakes ───

type fakeSessions struct {
	byID map[string]*models.ChatSession
	list []models.SessionWithCount
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string]*models.ChatSession)}
}

func (f *fakeSessions) Create(_ context.Context, s *models.ChatSession) error {
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*models.ChatSession, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) UpdateGuestName(_ context.Context, id, name string) error {
	if s, ok := f.byID[id]; ok {
		s.GuestName = &name
	}
	return nil
}

func (f *fakeSessions) End(_ context.Context, id string, endedAt time.Time, durationSeconds int, summary string) error {
	s, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.EndedAt = &endedAt
	s.DurationSeconds = &durationSeconds
	s.Summary = &summary
	return nil
}

func (f *fakeSessions) ListWithCounts(_ context.Context, _ int) ([]models.SessionWithCount, error) {
	return f.list, nil
}

type fakeMessages struct {
	bySession map[string][]models.ChatMessage
	nextID    int64
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{bySession: make(map[string][]models.ChatMessage)}
}

func (f *fakeMessages) Append(_ context.Context, m *models.ChatMessage) error {
	f.nextID++
	m.ID = f.nextID
	f.bySession[m.SessionID] = append(f.bySession[m.SessionID], *m)
	return nil
}

func (f *fakeMessages) ListAll(_ context.Context, sessionID string) ([]models.ChatMessage, error) {
	return f.bySession[sessionID], nil
}

func (f *fakeMessages) ListRecent(_ context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	msgs := f.bySession[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeMessages) ListFirst(_ context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	msgs := f.bySession[sessionID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

type fakeRequests struct {
	bySession map[string]*models.Request
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{bySession: make(map[string]*models.Request)}
}

func (f *fakeRequests) CreateFromChat(_ context.Context, req *models.Request) (string, bool, error) {
	if existing, ok := f.bySession[*req.SessionID]; ok {
		return existing.ID, false, nil
	}
	cp := *req
	f.bySession[*req.SessionID] = &cp
	return req.ID, true, nil
}

type fakeKnowledge struct{ entries []models.KnowledgeEntry }

func (f *fakeKnowledge) Search(_ context.Context, _ string, _ int) ([]models.KnowledgeEntry, error) {
	return f.entries, nil
}

type fakePromos struct{ promos []models.Promo }

func (f *fakePromos) ListActive(_ context.Context, _ int) ([]models.Promo, error) {
	return f.promos, nil
}

type stubCompleter struct {
	reply   string
	err     error
	systems []string
}

func (c *stubCompleter) Complete(_ context.Context, system string, _ []models.APIMessage) (string, error) {
	c.systems = append(c.systems, system)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type chatFixture struct {
	svc       *ChatService
	sessions  *fakeSessions
	messages  *fakeMessages
	requests  *fakeRequests
	completer *stubCompleter
}

func newChatFixture(completer *stubCompleter) *chatFixture {
	f := &chatFixture{
		sessions:  newFakeSessions(),
		messages:  newFakeMessages(),
		requests:  newFakeRequests(),
		completer: completer,
	}
	f.svc = NewChatService(
		f.sessions, f.messages, f.requests,
		&fakeKnowledge{}, &fakePromos{},
		completer, nil, "(021) 8834 7777",
	)
	return f
}

// ─── Tests ───

func TestStartSessionSeedsWelcome(t *testing.T) {
	f := newChatFixture(&stubCompleter{})

	session, welcome, err := f.svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	if !strings.HasPrefix(session.ID, "SESS-") {
		t.Errorf("session id = %q", session.ID)
	}
	if welcome.Role != "assistant" || !strings.Contains(welcome.Content, "SUNNY") {
		t.Errorf("welcome = %+v", welcome)
	}

	msgs := f.messages.bySession[session.ID]
	if len(msgs) != 1 || msgs[0].Sender != models.SenderBot {
		t.Fatalf("expected one bot message, got %+v", msgs)
	}
}

func TestHandleMessageCreatesRequestWhenComplete(t *testing.T) {
	completer := &stubCompleter{
		reply: `{"message": "Siap Kak Budi, sudah saya proses ya!", "collected_data": {"name": "Budi", "phone": "081234567890", "request_type": "service"}, "is_data_complete": true}`,
	}
	f := newChatFixture(completer)

	session, _, _ := f.svc.StartSession(context.Background())

	resp, err := f.svc.HandleMessage(context.Background(), session.ID,
		"Saya Budi, 081234567890, mau service besok", models.CollectedData{})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if !resp.IsDataComplete {
		t.Error("expected complete turn")
	}
	if !strings.HasPrefix(resp.RequestID, "REQ-") {
		t.Errorf("request id = %q", resp.RequestID)
	}

	req := f.requests.bySession[session.ID]
	if req == nil {
		t.Fatal("no request stored")
	}
	if req.Type != models.TypeServiceBooking {
		t.Errorf("type = %q", req.Type)
	}
	if req.Status != models.StatusPending {
		t.Errorf("status = %q", req.Status)
	}
	if req.Name != "Budi" || req.Phone != "081234567890" {
		t.Errorf("request = %+v", req)
	}

	// Guest name propagated to the session
	stored := f.sessions.byID[session.ID]
	if stored.GuestName == nil || *stored.GuestName != "Budi" {
		t.Errorf("guest name = %v", stored.GuestName)
	}
}

func TestHandleMessageIsIdempotentPerSession(t *testing.T) {
	completer := &stubCompleter{
		reply: `{"message": "Sudah tercatat ya Kak!", "collected_data": {"name": "Budi", "phone": "081234567890", "request_type": "Service Booking"}, "is_data_complete": true}`,
	}
	f := newChatFixture(completer)

	session, _, _ := f.svc.StartSession(context.Background())

	first, err := f.svc.HandleMessage(context.Background(), session.ID, "mau service", models.CollectedData{})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	second, err := f.svc.HandleMessage(context.Background(), session.ID, "oke terima kasih", first.CollectedData)
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}

	if second.RequestID != first.RequestID {
		t.Errorf("request id changed: %q vs %q", first.RequestID, second.RequestID)
	}
	if len(f.requests.bySession) != 1 {
		t.Errorf("expected exactly one request, got %d", len(f.requests.bySession))
	}
}

func TestHandleMessageDegradesOnAIFailure(t *testing.T) {
	f := newChatFixture(&stubCompleter{err: errors.New("upstream down")})

	session, _, _ := f.svc.StartSession(context.Background())

	resp, err := f.svc.HandleMessage(context.Background(), session.ID, "halo, mau tanya", models.CollectedData{})
	if err != nil {
		t.Fatalf("HandleMessage must not fail on AI error: %v", err)
	}

	if !strings.Contains(resp.Message.Content, "(021) 8834 7777") {
		t.Errorf("apology missing dealer phone: %q", resp.Message.Content)
	}
	if resp.IsDataComplete || resp.RequestID != "" {
		t.Errorf("degraded turn must not complete: %+v", resp)
	}

	// Both the inbound message and the apology are persisted.
	msgs := f.messages.bySession[session.ID]
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + user + apology, got %d messages", len(msgs))
	}
	if msgs[1].Sender != models.SenderUser || msgs[2].Sender != models.SenderBot {
		t.Errorf("unexpected transcript order: %+v", msgs)
	}
}

func TestHandleMessageUnknownSession(t *testing.T) {
	f := newChatFixture(&stubCompleter{reply: "ok"})

	_, err := f.svc.HandleMessage(context.Background(), "SESS-999", "halo", models.CollectedData{})

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestHandleMessageStatusInquirySideEntry(t *testing.T) {
	// Model answers in prose; the customer's data only exists client-side.
	f := newChatFixture(&stubCompleter{reply: "Sebentar saya cek dulu ya Kak."})

	session, _, _ := f.svc.StartSession(context.Background())

	prior := models.CollectedData{
		Name:  strPtr("Budi"),
		Phone: strPtr("081234567890"),
	}
	resp, err := f.svc.HandleMessage(context.Background(), session.ID,
		"request saya sudah masuk belum?", prior)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if resp.RequestID == "" {
		t.Fatal("status inquiry with known contact data must file a request")
	}
	if !resp.IsDataComplete {
		t.Error("side entry should report completeness")
	}

	req := f.requests.bySession[session.ID]
	if req == nil {
		t.Fatal("no request stored")
	}
	if req.Type != models.TypeSalesInquiry {
		t.Errorf("missing type should default to sales inquiry, got %q", req.Type)
	}
}

func TestNormalizeRequestType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Service Booking", "Service Booking"},
		{"servis berkala", "Service Booking"},
		{"test drive", "Test Drive"},
		{"sparepart", "Sparepart Info"},
		{"suku cadang", "Sparepart Info"},
		{"beli mobil", "Sales Inquiry"},
		{"sales", "Sales Inquiry"},
		{"", "Sales Inquiry"},
		{"entah apa", "Sales Inquiry"},
		// service outranks sales when both words appear
		{"service mobil yang mau dibeli", "Service Booking"},
	}

	for _, tc := range tests {
		if got := normalizeRequestType(tc.in); got != tc.want {
			t.Errorf("normalizeRequestType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsStatusInquiry(t *testing.T) {
	if !isStatusInquiry("Request saya sudah masuk belum ya?") {
		t.Error("expected status inquiry")
	}
	if isStatusInquiry("mau booking service besok") {
		t.Error("booking is not a status inquiry")
	}
}

func TestEndSessionStoresSummaryAndDuration(t *testing.T) {
	f := newChatFixture(&stubCompleter{reply: `"Pelanggan menanyakan harga Xpander."`})

	session, _, _ := f.svc.StartSession(context.Background())
	f.messages.Append(context.Background(), &models.ChatMessage{
		SessionID: session.ID, Sender: models.SenderUser, Message: "berapa harga xpander?",
	})

	summary, duration, err := f.svc.EndSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	if summary != "Pelanggan menanyakan harga Xpander." {
		t.Errorf("summary = %q, quotes should be stripped", summary)
	}
	if duration < 0 {
		t.Errorf("duration = %d", duration)
	}

	stored := f.sessions.byID[session.ID]
	if stored.Summary == nil || *stored.Summary != summary {
		t.Errorf("stored summary = %v", stored.Summary)
	}
	if stored.EndedAt == nil {
		t.Error("ended_at not set")
	}
}

func TestEndSessionSummaryFallback(t *testing.T) {
	f := newChatFixture(&stubCompleter{err: errors.New("upstream down")})

	session, _, _ := f.svc.StartSession(context.Background())
	f.sessions.UpdateGuestName(context.Background(), session.ID, "Budi")
	f.messages.Append(context.Background(), &models.ChatMessage{
		SessionID: session.ID, Sender: models.SenderUser, Message: "halo",
	})

	summary, _, err := f.svc.EndSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if summary != "Percakapan dengan Budi" {
		t.Errorf("summary = %q", summary)
	}
}

func TestEndSessionEmptyTranscript(t *testing.T) {
	f := newChatFixture(&stubCompleter{reply: "should not be called"})

	session, _, _ := f.svc.StartSession(context.Background())

	// Only the welcome message exists.
	summary, _, err := f.svc.EndSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if summary != "Chat session" {
		t.Errorf("summary = %q", summary)
	}
}

func TestListSessionsFormatting(t *testing.T) {
	f := newChatFixture(&stubCompleter{})

	started := time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC) // 14:30 WIB
	duration := 125
	name := "Budi"
	summary := "Booking servis Xpander"

	f.sessions.list = []models.SessionWithCount{
		{
			ChatSession: models.ChatSession{
				ID: "SESS-123", GuestName: &name, Summary: &summary,
				StartedAt: started, DurationSeconds: &duration,
			},
			MessageCount: 6,
		},
		{
			ChatSession:  models.ChatSession{ID: "SESS-456", StartedAt: started},
			MessageCount: 1,
		},
	}

	items, err := f.svc.ListSessions(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}

	if items[0].User != "Budi" || items[0].Duration != "2m 5s" || items[0].Summary != "Booking servis Xpander" {
		t.Errorf("item[0] = %+v", items[0])
	}
	if items[0].Time != "02:30 PM" || items[0].Date != "Mar 10, 2025" {
		t.Errorf("Jakarta time formatting: %+v", items[0])
	}

	if items[1].User != "Guest_456" || items[1].Duration != "Active" || items[1].Summary != "Chat session" {
		t.Errorf("item[1] = %+v", items[1])
	}
}
