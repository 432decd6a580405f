package types

// Topics.
var (
	TopicReading   = []string{"env", "reading"}
	TopicLinkState = []string{"serial", "state"}
)

// Link is the state of the serial link.
type Link string

const (
	LinkIdle     Link = "idle"
	LinkUp       Link = "up"
	LinkDegraded Link = "degraded"
	LinkDown     Link = "down"
)

// LinkState is published (retained) by the serial service.
type LinkState struct {
	Link   Link   `json:"link"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	TS     uint32 `json:"ts_ms"`
}
