package dto

// Envelope is the body of every successful response. Message is short
// enough to show to the caller as-is.
type Envelope struct {
	Data     any               `json:"data,omitempty"`
	Message  string            `json:"message"`
	Warnings []WarningResponse `json:"warnings,omitempty"`
}

// WarningResponse reports a side effect that failed after the change was saved.
type WarningResponse struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}
