package gemini

import "fmt"

// Outcome classifies how a chat completion ended.
type Outcome string

const (
	OutcomeGenerated      Outcome = "generated"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeUpstreamError  Outcome = "upstream_error"
	OutcomeTransportError Outcome = "transport_error"
)

// Fallback texts shown to the user instead of a generated reply.
const (
	NoResponseText = "I couldn't generate a response. Please rephrase the question."
	ErrorText      = "Oops! I encountered an error. Please try again."
	ConnectionText = "It seems I'm having connection issues. Please check your network and try again."
)

// Completion is the text to show for one chat exchange and how it was obtained.
type Completion struct {
	Text    string
	Outcome Outcome
}

// Generated reports whether Text came from the model rather than a fallback.
func (c Completion) Generated() bool { return c.Outcome == OutcomeGenerated }

// Message is one turn of the history sent to the model. Role is "user" or "model".
type Message struct {
	Role string
	Text string
}

// Part is a text fragment of a content block.
type Part struct {
	Text string `json:"text"`
}

// Content is a role-tagged list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig carries the sampling parameters of a request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
	Error *APIError `json:"error,omitempty"`
}

// APIError is the structured error object returned by the endpoint.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error %d (%s): %s", e.Code, e.Status, e.Message)
}

// firstText returns candidates[0].content.parts[0].text.
func (r *generateResponse) firstText() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	return r.Candidates[0].Content.Parts[0].Text, true
}
