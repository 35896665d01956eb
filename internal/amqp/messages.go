package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"combos/internal/core"
)

// Result states carried by SearchResultMessage.State.
const (
	StateDone    = "done"
	StateInvalid = "invalid"
	StateFailed  = "failed"
)

// SearchRequestMessage asks a worker to run one combination search.
// Fields hold the raw form values so the worker applies the same validation
// as the HTTP surface.
type SearchRequestMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Target    string    `json:"target"`
	MaxCount  string    `json:"max_count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSearchRequestMessage creates a request with a fresh search ID.
func NewSearchRequestMessage(text, target, maxCount string) *SearchRequestMessage {
	return &SearchRequestMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Target:    target,
		MaxCount:  maxCount,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SearchRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SearchRequestMessageFromJSON decodes a request; a request without an ID is rejected.
func SearchRequestMessageFromJSON(data []byte) (*SearchRequestMessage, error) {
	var msg SearchRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("search request without id")
	}
	return &msg, nil
}

// CombinationPayload is one combination as plain indices and amounts.
type CombinationPayload struct {
	Indices []int    `json:"indices"`
	Amounts []string `json:"amounts"`
	Sum     string   `json:"sum"`
}

// SearchResultMessage reports the outcome of a SearchRequestMessage with the same ID.
type SearchResultMessage struct {
	ID           string               `json:"id"`
	State        string               `json:"state"`
	Status       string               `json:"status"`
	Combinations []CombinationPayload `json:"combinations"`
	Truncated    bool                 `json:"truncated"`
	Error        string               `json:"error,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// NewSearchResultMessage builds a successful result for search id.
func NewSearchResultMessage(id string, res core.SearchResult) *SearchResultMessage {
	combos := make([]CombinationPayload, 0, len(res.Combinations))
	for _, c := range res.Combinations {
		p := CombinationPayload{
			Indices: c.Indices(),
			Amounts: make([]string, len(c.Items)),
			Sum:     core.FormatPlain(c.Sum),
		}
		for i, e := range c.Items {
			p.Amounts[i] = core.FormatPlain(e.Cents)
		}
		combos = append(combos, p)
	}
	return &SearchResultMessage{
		ID:           id,
		State:        StateDone,
		Status:       res.Summary(),
		Combinations: combos,
		Truncated:    res.Truncated,
		Timestamp:    time.Now(),
	}
}

// NewSearchErrorMessage builds a result that carries only an error.
func NewSearchErrorMessage(id, state string, err error) *SearchResultMessage {
	return &SearchResultMessage{
		ID:           id,
		State:        state,
		Combinations: []CombinationPayload{},
		Error:        err.Error(),
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SearchResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SearchResultMessageFromJSON creates a message from JSON bytes
func SearchResultMessageFromJSON(data []byte) (*SearchResultMessage, error) {
	var msg SearchResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
