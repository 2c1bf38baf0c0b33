package api

// AskRequest is the body for the chat proxy endpoints. Prompt and Message
// are aliases; whichever is set is used. Persona is accepted for
// compatibility with older frontends; replies derive their tone from the
// lead record instead.
type AskRequest struct {
	Prompt  string      `json:"prompt,omitempty"`
	Message string      `json:"message,omitempty"`
	Persona string      `json:"persona,omitempty"`
	Images  []ImagePart `json:"images,omitempty"`
}

// ImagePart is an inline image for multimodal requests
type ImagePart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// AskResponse carries generated text back to the caller
type AskResponse struct {
	Text string `json:"text"`
}

// AudioRequest is the body for the synthesis endpoint
type AudioRequest struct {
	Text string `json:"text"`
}

// TranscribeRequest is the body for the transcription endpoint
type TranscribeRequest struct {
	Audio      string `json:"audio"` // base64 encoded
	SampleRate int    `json:"sample_rate,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
}

// TranscribeResponse carries the recognized text
type TranscribeResponse struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
