package chessgame_entities

import (
	"regexp"
	"strings"
	"time"
)

const chatRingCapacity = 100

var htmlSignificantChars = regexp.MustCompile(`[<>&"']`)

// profanityMask is a small, explicit word list rather than a pulled-in
// dependency: no profanity-filtering library appears anywhere in the
// retrieval pack, and the policy spec §4.D asks for ("apply a profanity
// mask") is a handful of literal substitutions, not a general NLP task.
var profanityMask = []string{"fuck", "shit", "bitch", "cunt"}

type ChatEntry struct {
	SenderWallet string    `json:"sender_wallet"`
	SenderShort  string    `json:"sender_short"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChatRing is the bounded 100-entry chat history of spec §3's chat_ring.
type ChatRing struct {
	entries []ChatEntry
}

func NewChatRing() *ChatRing {
	return &ChatRing{entries: make([]ChatEntry, 0, chatRingCapacity)}
}

// Sanitize strips HTML-significant characters, applies the profanity
// mask, and enforces the 1..200 length bound from spec §4.D. Returns
// false if the message is empty after trimming or exceeds 200 runes.
func Sanitize(raw string) (string, bool) {
	msg := strings.TrimSpace(raw)
	if msg == "" || len([]rune(msg)) > 200 {
		return "", false
	}

	msg = htmlSignificantChars.ReplaceAllString(msg, "")
	if msg == "" {
		return "", false
	}

	lower := strings.ToLower(msg)
	for _, word := range profanityMask {
		if strings.Contains(lower, word) {
			mask := strings.Repeat("*", len(word))
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
			msg = re.ReplaceAllString(msg, mask)
		}
	}

	return msg, true
}

func shortenWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "…" + wallet[len(wallet)-4:]
}

func (r *ChatRing) Append(wallet, message string, at time.Time) ChatEntry {
	entry := ChatEntry{
		SenderWallet: wallet,
		SenderShort:  shortenWallet(wallet),
		Message:      message,
		Timestamp:    at,
	}

	r.entries = append(r.entries, entry)
	if len(r.entries) > chatRingCapacity {
		r.entries = r.entries[len(r.entries)-chatRingCapacity:]
	}

	return entry
}

func (r *ChatRing) Entries() []ChatEntry {
	out := make([]ChatEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
