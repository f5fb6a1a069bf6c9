// Package identity derives deterministic, participant-order-independent keys
// for two-party conversation threads. The key doubles as the backend's message
// store address and as the local thread index.
package identity

import (
	"sort"
	"strings"

	"socio/internal/models"
)

// Separator joins the two participant ids inside a conversation key.
const Separator = ":"

// Key identifies a two-party conversation thread.
type Key string

func (k Key) String() string { return string(k) }

// DeriveConversationKey builds the thread key for a pair of participants.
// It is commutative: DeriveConversationKey(a, b) == DeriveConversationKey(b, a).
func DeriveConversationKey(a, b string) Key {
	ids := []string{a, b}
	sort.Strings(ids)
	return Key(strings.Join(ids, Separator))
}

// Members returns the two participant ids encoded in the key.
func (k Key) Members() []string {
	return strings.Split(string(k), Separator)
}

// Counterpart returns the participant on the other side of the thread from
// self. The second return is false when self is not a member of the key.
func Counterpart(k Key, self string) (string, bool) {
	members := k.Members()
	if len(members) != 2 {
		return "", false
	}
	switch self {
	case members[0]:
		return members[1], true
	case members[1]:
		return members[0], true
	}
	return "", false
}

// ValidateParticipantID rejects ids that would make keys ambiguous. Ids must
// be validated before key derivation; the separator character inside an id
// would collide distinct unordered pairs.
func ValidateParticipantID(id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError("participant id is required")
	}
	if strings.Contains(id, Separator) {
		return models.NewValidationError("participant id must not contain '" + Separator + "'")
	}
	return nil
}
