package bot

import "sync"

// conversationKind identifies which flow a chat is currently in.
type conversationKind int

const (
	convBooking conversationKind = iota
	convRegistration
	convStatusCheck
	convFeedback
)

// conversationState is the current step inside a flow.
type conversationState int

const (
	stateAwaitingAppliance conversationState = iota
	stateAwaitingCity
	stateAwaitingComplaint
	stateAwaitingProblem

	stateAwaitingName
	stateAwaitingPhone
	stateAwaitingSkills

	stateAwaitingTicketID

	stateAwaitingFeedbackTicket
	stateAwaitingRating
	stateAwaitingComment
)

// bookingDraft accumulates the booking answers until the ticket is
// written.
type bookingDraft struct {
	Appliance         string
	Location          string
	CityFreeText      string
	Complaint         string
	ComplaintFreeText string
}

type registrationDraft struct {
	Name  string
	Phone string
}

type feedbackDraft struct {
	TicketID int64
	Rating   int
}

// conversation is the per-chat context object. It exists only between
// flow entry and terminal or cancel, and is never shared across chats.
type conversation struct {
	kind  conversationKind
	state conversationState

	booking      bookingDraft
	registration registrationDraft
	feedback     feedbackDraft
}

// conversationRegistry tracks at most one active conversation per chat.
type conversationRegistry struct {
	mu     sync.Mutex
	active map[int64]*conversation
}

func newConversationRegistry() *conversationRegistry {
	return &conversationRegistry{active: make(map[int64]*conversation)}
}

// begin starts a fresh conversation for the chat, discarding any flow
// already in progress there.
func (r *conversationRegistry) begin(chatID int64, kind conversationKind, state conversationState) *conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := &conversation{kind: kind, state: state}
	r.active[chatID] = conv
	return conv
}

func (r *conversationRegistry) get(chatID int64) (*conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.active[chatID]
	return conv, ok
}

// end disposes the chat's conversation context.
func (r *conversationRegistry) end(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, chatID)
}
