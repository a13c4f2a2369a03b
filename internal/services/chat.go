package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"sunny-backend/internal/models"
)

// System prompt for the SUNNY assistant
const systemPrompt = `Kamu adalah SUNNY, asisten AI customer service dealer Mitsubishi SUN Bekasi yang ramah, humanis, dan profesional.

KARAKTER:
- Gunakan bahasa Indonesia yang santai tapi tetap sopan
- Panggil customer dengan "Kak" atau nama mereka jika sudah tahu
- Responsif, helpful, dan antusias membantu

TUGAS UTAMA:
1. Jawab pertanyaan customer seputar Mitsubishi SUN Bekasi
2. Kumpulkan data customer untuk kebutuhan mereka (Service, Test Drive, Beli Mobil, Sparepart)
3. Data WAJIB untuk SEMUA request: Nama dan Nomor HP

DATA SPESIFIK PER REQUEST (WAJIB ADA sebelum complete):
1. Service Booking:
   - Kendaraan (Model/Tipe)
   - Plat Nomor
   - Tanggal/Jam Service

2. Test Drive / Sales Inquiry (Beli Mobil):
   - Unit yang diminati (Model/Tipe)

3. Sparepart Info:
   - Kendaraan (Model)
   - Nama Barang/Part

PANDUAN PENTING:
- Jika customer menyatakan minat/kebutuhan, LANGSUNG tanyakan data yang kurang secara bertahap.
- JANGAN tanya Email (opsional).
- Jika customer sudah memberi data, simpan di "collected_data".
- JANGAN minta ulang data yang sudah diberikan di pesan sebelumnya.

Format response dalam JSON:
{
  "message": "pesan untuk customer",
  "collected_data": {
    "name": "nama customer",
    "phone": "nomor hp/wa",
    "request_type": "Service Booking|Test Drive|Sales Inquiry|Sparepart Info|null",
    "vehicle": "kendaraan/model",
    "plat": "plat nomor (wajib untuk service)",
    "details": {
       "service_date": "tgl service (wajib untuk booking)",
       "part_name": "nama part (wajib untuk sparepart)",
       "unit_interest": "unit minat (wajib untuk sales/test drive)"
    }
  },
  "is_data_complete": boolean
}

ATURAN KRUSIAL "is_data_complete = true":
Set TRUE HANYA JIKA "name", "phone", dan "request_type" SEMUANYA sudah didapatkan.
Detail tambahan (kendaraan, plat, tanggal) boleh menyusul, kita follow-up manual sisanya.

PERINGATAN STRICT:
- KAMU ADALAH MESIN JSON.
- OUTPUT WAJIB FORMAT JSON.
- "message" berisi chat untuk customer.
- "collected_data" berisi data yang ditangkap.
- JANGAN berhalusinasi data tersimpan jika kamu tidak menyertakan data tersebut di "collected_data".`

const welcomeMessage = "Halo! Saya SUNNY, asisten AI Mitsubishi SUN Bekasi. Ada yang bisa saya bantu hari ini? 😊"

const (
	historyLimit   = 20
	summaryLimit   = 30
	promoCacheKey  = "chat:active_promos"
	promoCacheTTL  = 60 * time.Second
	dashboardChan  = "dashboard_updates"
	summaryMaxRune = 500
)

var jakartaLoc = time.FixedZone("WIB", 7*3600)

// Completer produces one assistant reply for a chat history.
type Completer interface {
	Complete(ctx context.Context, system string, history []models.APIMessage) (string, error)
}

type chatSessionStore interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id string) (*models.ChatSession, error)
	UpdateGuestName(ctx context.Context, id, name string) error
	End(ctx context.Context, id string, endedAt time.Time, durationSeconds int, summary string) error
	ListWithCounts(ctx context.Context, limit int) ([]models.SessionWithCount, error)
}

type chatMessageStore interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	ListAll(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	ListFirst(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}

type chatRequestStore interface {
	CreateFromChat(ctx context.Context, req *models.Request) (string, bool, error)
}

type chatKnowledgeStore interface {
	Search(ctx context.Context, query string, limit int) ([]models.KnowledgeEntry, error)
}

type chatPromoStore interface {
	ListActive(ctx context.Context, limit int) ([]models.Promo, error)
}

type ChatService struct {
	sessions  chatSessionStore
	messages  chatMessageStore
	requests  chatRequestStore
	knowledge chatKnowledgeStore
	promos    chatPromoStore
	completer Completer
	redis     *redis.Client // optional, nil disables cache and pub/sub

	fallbackPhone string
}

func NewChatService(
	sessions chatSessionStore,
	messages chatMessageStore,
	requests chatRequestStore,
	knowledge chatKnowledgeStore,
	promos chatPromoStore,
	completer Completer,
	redisClient *redis.Client,
	fallbackPhone string,
) *ChatService {
	return &ChatService{
		sessions:      sessions,
		messages:      messages,
		requests:      requests,
		knowledge:     knowledge,
		promos:        promos,
		completer:     completer,
		redis:         redisClient,
		fallbackPhone: fallbackPhone,
	}
}

func generateSessionID() string {
	return fmt.Sprintf("SESS-%03d", rand.IntN(900)+100)
}

func generateRequestID() string {
	return fmt.Sprintf("REQ-%03d", rand.IntN(900)+100)
}

// StartSession creates a session and seeds it with the welcome message.
func (s *ChatService) StartSession(ctx context.Context) (*models.ChatSession, models.APIMessage, error) {
	session := &models.ChatSession{
		ID:        generateSessionID(),
		StartedAt: time.Now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, models.APIMessage{}, fmt.Errorf("failed to create session: %w", err)
	}

	welcome := &models.ChatMessage{
		SessionID: session.ID,
		Sender:    models.SenderBot,
		Message:   welcomeMessage,
		CreatedAt: session.StartedAt,
	}
	if err := s.messages.Append(ctx, welcome); err != nil {
		return nil, models.APIMessage{}, fmt.Errorf("failed to save welcome message: %w", err)
	}

	return session, models.APIMessage{Role: "assistant", Content: welcomeMessage}, nil
}

// GetSession returns a session with its full transcript.
func (s *ChatService) GetSession(ctx context.Context, id string) (*models.ChatSession, []models.ChatMessage, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, nil, err
	}

	messages, err := s.messages.ListAll(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return session, messages, nil
}

// HandleMessage runs one full chat turn: persist the customer message, ask
// the model, reconcile collected data, and create the dealer request once
// the required fields are in hand. The prior collected data comes from the
// client and is the merge baseline for this turn.
func (s *ChatService) HandleMessage(ctx context.Context, sessionID, message string, prior models.CollectedData) (*models.ChatTurnResponse, error) {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, &NotFoundError{Message: "Session not found"}
		}
		return nil, err
	}

	inbound := &models.ChatMessage{
		SessionID: sessionID,
		Sender:    models.SenderUser,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Append(ctx, inbound); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	history, err := s.messages.ListRecent(ctx, sessionID, historyLimit)
	if err != nil {
		return nil, err
	}

	apiHistory := make([]models.APIMessage, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Sender == models.SenderBot {
			role = "assistant"
		}
		apiHistory = append(apiHistory, models.APIMessage{Role: role, Content: m.Message})
	}

	system := s.buildSystemPrompt(ctx, message, prior)

	result := s.completeTurn(ctx, system, apiHistory, message, prior)

	outbound := &models.ChatMessage{
		SessionID: sessionID,
		Sender:    models.SenderBot,
		Message:   result.Message,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Append(ctx, outbound); err != nil {
		// The customer already has the reply in hand; losing the stored copy
		// is not worth failing the turn over.
		log.Printf("failed to save bot message for %s: %v", sessionID, err)
	}

	if hasText(result.CollectedData.Name) {
		if err := s.sessions.UpdateGuestName(ctx, sessionID, *result.CollectedData.Name); err != nil {
			log.Printf("failed to update guest name for %s: %v", sessionID, err)
		}
	}

	resp := &models.ChatTurnResponse{
		Message:        models.APIMessage{Role: "assistant", Content: result.Message},
		CollectedData:  result.CollectedData,
		IsDataComplete: result.IsDataComplete,
	}

	if result.IsDataComplete && hasText(result.CollectedData.Name) && hasText(result.CollectedData.Phone) {
		if requestID := s.ensureRequest(ctx, sessionID, result.CollectedData); requestID != "" {
			resp.RequestID = requestID
		}
	} else if isStatusInquiry(message) && hasText(prior.Name) && hasText(prior.Phone) {
		// Returning customer asking about an earlier request: the client
		// still holds their data even though this transcript never
		// collected it, so file the request from that.
		if requestID := s.ensureRequest(ctx, sessionID, prior); requestID != "" {
			resp.RequestID = requestID
			resp.CollectedData = prior
			resp.IsDataComplete = true
		}
	}

	return resp, nil
}

// completeTurn asks the model and parses the reply. Any model failure
// degrades to a canned apology so the customer never sees an error.
func (s *ChatService) completeTurn(ctx context.Context, system string, history []models.APIMessage, userMessage string, prior models.CollectedData) parsedReply {
	raw, err := s.completer.Complete(ctx, system, history)
	if err != nil {
		log.Printf("AI completion failed: %v", err)
		return parsedReply{
			Message:       fmt.Sprintf("Maaf, terjadi gangguan. Silakan coba lagi atau hubungi dealer kami langsung di %s.", s.fallbackPhone),
			CollectedData: prior,
		}
	}

	return parseAssistantReply(raw, userMessage, prior)
}

// buildSystemPrompt layers the live context onto the persona: current
// Jakarta time, matching knowledge base entries, active promos, and the
// data already collected from this customer.
func (s *ChatService) buildSystemPrompt(ctx context.Context, message string, prior models.CollectedData) string {
	var b strings.Builder
	b.WriteString(systemPrompt)

	now := time.Now().In(jakartaLoc)
	b.WriteString("\nWAKTU SAAT INI: ")
	b.WriteString(now.Format("Monday, 2 January 2006 15:04 WIB"))
	b.WriteString("\n(Gunakan informasi waktu ini untuk menjawab pertanyaan terkait hari, tanggal, atau jam)")

	if entries, err := s.knowledge.Search(ctx, message, 3); err != nil {
		log.Printf("knowledge search error: %v", err)
	} else if len(entries) > 0 {
		b.WriteString("\n\nINFORMASI TAMBAHAN DARI DATABASE:\nKnowledge Base:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s: %s\n", e.Title, e.Content)
		}
	}

	if promos := s.activePromos(ctx); len(promos) > 0 {
		b.WriteString("\nPromo Aktif:\n")
		for _, p := range promos {
			desc := ""
			if p.Description != nil {
				desc = *p.Description
			}
			fmt.Fprintf(&b, "- %s: %s\n", p.Title, desc)
		}
	}

	if hasText(prior.Name) || hasText(prior.Phone) || hasText(prior.RequestType) ||
		hasText(prior.Vehicle) || hasText(prior.Plat) || len(prior.Details) > 0 {
		if data, err := json.Marshal(prior); err == nil {
			b.WriteString("\n\nData customer yang sudah dikumpulkan: ")
			b.Write(data)
		}
	}

	return b.String()
}

// activePromos returns active promos, served from a short Redis cache so a
// busy chat widget does not hammer the promos table on every turn.
func (s *ChatService) activePromos(ctx context.Context) []models.Promo {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, promoCacheKey).Result(); err == nil {
			var promos []models.Promo
			if json.Unmarshal([]byte(cached), &promos) == nil {
				return promos
			}
		}
	}

	promos, err := s.promos.ListActive(ctx, 3)
	if err != nil {
		log.Printf("promo fetch error: %v", err)
		return nil
	}

	if s.redis != nil {
		if data, err := json.Marshal(promos); err == nil {
			s.redis.Set(ctx, promoCacheKey, data, promoCacheTTL)
		}
	}

	return promos
}

// ensureRequest files the dealer request for a session. The store guarantees
// at most one request per session, so replays return the existing id. A
// failure here is logged with the captured fields and never fails the chat
// turn; the transcript still holds everything needed to file it by hand.
func (s *ChatService) ensureRequest(ctx context.Context, sessionID string, data models.CollectedData) string {
	details := json.RawMessage("{}")
	if len(data.Details) > 0 {
		if raw, err := json.Marshal(data.Details); err == nil {
			details = raw
		}
	}

	notes := fmt.Sprintf("Request dari chat session %s", sessionID)
	req := &models.Request{
		ID:        generateRequestID(),
		Type:      normalizeRequestType(deref(data.RequestType)),
		Status:    models.StatusPending,
		Name:      deref(data.Name),
		Phone:     deref(data.Phone),
		Vehicle:   data.Vehicle,
		Plat:      data.Plat,
		Details:   details,
		SessionID: &sessionID,
		Notes:     &notes,
		CreatedAt: time.Now(),
	}

	requestID, created, err := s.requests.CreateFromChat(ctx, req)
	if err != nil {
		log.Printf("failed to create request for session %s (name=%q phone=%q type=%q): %v",
			sessionID, req.Name, req.Phone, req.Type, err)
		return ""
	}

	if created {
		log.Printf("request created: %s for session %s", requestID, sessionID)
		s.publish(ctx, models.WSMessage{
			Type: "request_created",
			Payload: models.RequestCreatedEvent{
				RequestID: requestID,
				SessionID: sessionID,
				Type:      req.Type,
				Name:      req.Name,
			},
		})
	}

	return requestID
}

// normalizeRequestType maps free-form model output onto the request enum.
// Service wins over sales so "booking service mobil yang mau dibeli" files
// as a service booking. Anything unrecognized is a sales inquiry.
func normalizeRequestType(raw string) string {
	t := strings.ToLower(raw)
	switch {
	case strings.Contains(t, "service"), strings.Contains(t, "servis"):
		return models.TypeServiceBooking
	case strings.Contains(t, "test"):
		return models.TypeTestDrive
	case strings.Contains(t, "part"), strings.Contains(t, "suku"):
		return models.TypeSparepartInfo
	case strings.Contains(t, "sales"), strings.Contains(t, "beli"):
		return models.TypeSalesInquiry
	}

	switch raw {
	case models.TypeServiceBooking, models.TypeTestDrive, models.TypeSparepartInfo, models.TypeSalesInquiry:
		return raw
	}
	return models.TypeSalesInquiry
}

var statusInquiryPhrases = []string{
	"sudah dikirim",
	"sudah terkirim",
	"sudah masuk",
	"status request",
	"request saya",
	"permintaan saya",
}

// isStatusInquiry reports whether the customer is asking after an already
// submitted request rather than making a new one.
func isStatusInquiry(message string) bool {
	m := strings.ToLower(message)
	for _, phrase := range statusInquiryPhrases {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}

// EndSession closes a session: records the duration, generates a one line
// Indonesian summary of the conversation, and stores both.
func (s *ChatService) EndSession(ctx context.Context, sessionID string) (string, int, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", 0, &NotFoundError{Message: "Session not found"}
		}
		return "", 0, err
	}

	endedAt := time.Now()
	duration := int(endedAt.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	summary := s.summarizeSession(ctx, sessionID, session.GuestName)

	if err := s.sessions.End(ctx, sessionID, endedAt, duration, summary); err != nil {
		return "", 0, fmt.Errorf("failed to end session: %w", err)
	}

	s.publish(ctx, models.WSMessage{
		Type: "session_ended",
		Payload: models.SessionEndedEvent{
			SessionID:       sessionID,
			Summary:         summary,
			DurationSeconds: duration,
		},
	})

	return summary, duration, nil
}

func (s *ChatService) summarizeSession(ctx context.Context, sessionID string, guestName *string) string {
	fallback := "Chat session"
	if hasText(guestName) {
		fallback = fmt.Sprintf("Percakapan dengan %s", *guestName)
	}

	messages, err := s.messages.ListFirst(ctx, sessionID, summaryLimit)
	if err != nil {
		log.Printf("summary transcript fetch error for %s: %v", sessionID, err)
		return fallback
	}
	if len(messages) <= 1 {
		return "Chat session"
	}

	var transcript strings.Builder
	for _, m := range messages {
		speaker := "Customer"
		if m.Sender == models.SenderBot {
			speaker = "Bot"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, m.Message)
	}

	prompt := fmt.Sprintf(`Berdasarkan percakapan berikut, buat ringkasan singkat dalam 1 kalimat (maksimal 50 kata) dalam bahasa Indonesia. Fokus pada topik utama dan hasil percakapan.

Percakapan:
%s
Ringkasan:`, transcript.String())

	raw, err := s.completer.Complete(ctx, "", []models.APIMessage{{Role: "user", Content: prompt}})
	if err != nil {
		log.Printf("summary generation error for %s: %v", sessionID, err)
		return fallback
	}

	summary := strings.Trim(strings.TrimSpace(raw), `"'`)
	if summary == "" {
		return fallback
	}
	if runes := []rune(summary); len(runes) > summaryMaxRune {
		summary = string(runes[:summaryMaxRune])
	}
	return summary
}

// ListSessions returns the dashboard history view with Jakarta local
// timestamps and a human duration.
func (s *ChatService) ListSessions(ctx context.Context, limit int) ([]models.SessionListItem, error) {
	sessions, err := s.sessions.ListWithCounts(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.SessionListItem, 0, len(sessions))
	for _, sess := range sessions {
		started := sess.StartedAt.In(jakartaLoc)

		item := models.SessionListItem{
			ID:           sess.ID,
			User:         "Guest_" + strings.Replace(sess.ID, "SESS-", "", 1),
			Summary:      "Chat session",
			Duration:     "Active",
			Time:         started.Format("03:04 PM"),
			Date:         started.Format("Jan 2, 2006"),
			RequestID:    sess.RequestID,
			MessageCount: sess.MessageCount,
		}
		if hasText(sess.GuestName) {
			item.User = *sess.GuestName
		}
		if hasText(sess.Summary) {
			item.Summary = *sess.Summary
		}
		if sess.DurationSeconds != nil && *sess.DurationSeconds > 0 {
			item.Duration = fmt.Sprintf("%dm %ds", *sess.DurationSeconds/60, *sess.DurationSeconds%60)
		}

		items = append(items, item)
	}

	return items, nil
}

func (s *ChatService) publish(ctx context.Context, msg models.WSMessage) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(msg)
	s.redis.Publish(ctx, dashboardChan, string(data))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
