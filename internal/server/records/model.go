// Package records holds the user-record data contract: the persisted User
// shape, its per-user State payload with the recognized trading-bot
// sequences, and the service operating on the collection.
package records

import (
	"encoding/json"
	"strconv"
)

// Wire keys of the recognized sub-collections inside State.
const (
	keyActiveBots    = "activeTradingBots"
	keyCompletedBots = "completedTradingBots"
)

// User is the sole persisted entity. Email is the primary key and is unique
// across the collection. The password is stored as a bcrypt hash and must
// never be serialized into API responses.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	State        State  `json:"state"`
}

// Bot is an opaque bot object. The "id" field, when present, is used for
// lookups; ids are compared loosely, so 1 and "1" refer to the same bot.
type Bot map[string]any

// ID returns the bot's id canonicalized to a string, or "" if absent.
func (b Bot) ID() string {
	v, ok := b["id"]
	if !ok {
		return ""
	}
	return canonicalID(v)
}

// canonicalID normalizes an id value to a single string representation.
// JSON numbers decode as float64; integral values render without a fraction
// so that 1 and "1" compare equal.
func canonicalID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// clone returns a deep-enough copy of the bot for safe hand-off across the
// store boundary.
func (b Bot) clone() Bot {
	if b == nil {
		return nil
	}
	out := make(Bot, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// State is the per-user application payload. The two recognized bot
// sequences are typed; everything else round-trips untouched through Extra.
//
// A nil sequence means the key is absent from the stored state; an empty
// non-nil sequence is present and serializes as [].
type State struct {
	Active    []Bot
	Completed []Bot
	Extra     map[string]json.RawMessage
}

func (s State) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(s.Extra)+2)
	for k, v := range s.Extra {
		m[k] = v
	}
	if s.Active != nil {
		data, err := json.Marshal(s.Active)
		if err != nil {
			return nil, err
		}
		m[keyActiveBots] = data
	}
	if s.Completed != nil {
		data, err := json.Marshal(s.Completed)
		if err != nil {
			return nil, err
		}
		m[keyCompletedBots] = data
	}
	return json.Marshal(m)
}

func (s *State) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := State{}
	if v, ok := raw[keyActiveBots]; ok {
		if err := json.Unmarshal(v, &out.Active); err != nil {
			return err
		}
		if out.Active == nil {
			out.Active = []Bot{}
		}
		delete(raw, keyActiveBots)
	}
	if v, ok := raw[keyCompletedBots]; ok {
		if err := json.Unmarshal(v, &out.Completed); err != nil {
			return err
		}
		if out.Completed == nil {
			out.Completed = []Bot{}
		}
		delete(raw, keyCompletedBots)
	}
	if len(raw) > 0 {
		out.Extra = raw
	}

	*s = out
	return nil
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := State{}
	if s.Active != nil {
		out.Active = make([]Bot, len(s.Active))
		for i, b := range s.Active {
			out.Active[i] = b.clone()
		}
	}
	if s.Completed != nil {
		out.Completed = make([]Bot, len(s.Completed))
		for i, b := range s.Completed {
			out.Completed[i] = b.clone()
		}
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
