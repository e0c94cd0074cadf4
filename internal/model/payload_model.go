package model

type PayloadType string

const (
	PayloadInfo            PayloadType = "Info"
	PayloadResearchResults PayloadType = "ResearchResults"
	PayloadShoppingSummary PayloadType = "ShoppingSummary"
	PayloadAISummary       PayloadType = "AISummary"
)

// Envelope carries the routing fields shared by every payload.
// ThreadID is empty for session-level messages.
type Envelope struct {
	Type      PayloadType `json:"type"`
	SessionID string      `json:"session_id"`
	ThreadID  string      `json:"thread_id,omitempty"`
}

func (e Envelope) Meta() Envelope {
	return e
}

// AgentPayload is the tagged union streamed to clients. The Type in the
// envelope decides which concrete schema is on the wire.
type AgentPayload interface {
	Meta() Envelope
}

type InfoPayload struct {
	Envelope
	Message string `json:"message"`
}

func NewInfo(sessionID, threadID, message string) *InfoPayload {
	return &InfoPayload{
		Envelope: Envelope{Type: PayloadInfo, SessionID: sessionID, ThreadID: threadID},
		Message:  message,
	}
}

type ResearchResultsPayload struct {
	Envelope
	Query        string           `json:"query"`
	TopMatch     ExtractedProduct `json:"top_match"`
	Alternatives []Alternative    `json:"alternatives"`
}

type ShoppingSummaryPayload struct {
	Envelope
	ProductName       string            `json:"productName"`
	Brand             string            `json:"brand"`
	DetectedPrice     string            `json:"detectedPrice"`
	Competitors       []CompetitorPrice `json:"competitors"`
	IsCompatible      bool              `json:"isCompatible"`
	CompatibilityNote string            `json:"compatibilityNote"`
	ValueScore        ValueScore        `json:"valueScore"`
	AIInsight         string            `json:"aiInsight"`
}

type AISummaryPayload struct {
	Envelope
	Summary string   `json:"summary"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
	BestFor []string `json:"best_for"`
}
