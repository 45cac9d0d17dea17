package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message asks a worker to run the processing pipeline for one document.
type Message struct {
	DocumentID int64  `json:"documentId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a message for documentID with the current time.
func NewMessage(documentID int64, requestID string) Message {
	return Message{
		DocumentID: documentID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
