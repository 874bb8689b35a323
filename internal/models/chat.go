package models

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is written for every failed chat turn.
type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type EchoResponse struct {
	Status   string      `json:"status"`
	Message  string      `json:"message"`
	Received interface{} `json:"received"`
}
