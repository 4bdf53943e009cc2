package core

import (
	"time"
)

// InteractionType is the model's verdict on whether a message was triggered by the user
type InteractionType string

const (
	Interacted    InteractionType = "interacted"
	NotInteracted InteractionType = "not interacted"
)

// Valid reports whether t is one of the two known interaction values
func (t InteractionType) Valid() bool {
	return t == Interacted || t == NotInteracted
}

// RequestType selects which data-protection request is composed for a company
type RequestType string

const (
	RequestUnset  RequestType = "-"
	RequestAccess RequestType = "Request Data"
	RequestModify RequestType = "Modify Data"
	RequestErase  RequestType = "Erase Data"
)

// RequestTypes lists the selectable request kinds in display order
var RequestTypes = []RequestType{RequestAccess, RequestModify, RequestErase}

// Valid reports whether r names a composable request
func (r RequestType) Valid() bool {
	switch r {
	case RequestAccess, RequestModify, RequestErase:
		return true
	}
	return false
}

// RawMessageRef identifies a provider message and the category it was listed under
type RawMessageRef struct {
	ID       string
	Category string
}

// MessageContent holds the normalized headers and plain-text body of a message.
// Empty header fields mean the header was absent.
type MessageContent struct {
	Subject string
	Sender  string
	Date    string
	Body    string
}

// ClassificationResult is the structured answer returned by a model
type ClassificationResult struct {
	CompanyName     string          `json:"company_name"`
	InteractionType InteractionType `json:"interaction_type"`
	Website         string          `json:"website"`
}

// ScanRecord is one classified message, keyed by provider message id
type ScanRecord struct {
	MessageID      string               `json:"message_id"`
	Category       string               `json:"category,omitempty"`
	Subject        string               `json:"subject,omitempty"`
	Sender         string               `json:"sender,omitempty"`
	Date           string               `json:"date,omitempty"`
	Classification ClassificationResult `json:"classification"`
}

// CompanyRow is a deduplicated, user-selectable company entry
type CompanyRow struct {
	CompanyName         string
	InteractionCategory string
	Website             string
	Selected            bool
	RequestType         RequestType
}

// FetchOptions bounds a single inbox fetch
type FetchOptions struct {
	Days             int
	Categories       []string
	Ignored          []string
	LimitPerCategory int
}

// CacheEntry is a cached classification for a message
type CacheEntry struct {
	MessageID string               `json:"message_id"`
	Result    ClassificationResult `json:"result"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// UserProfile identifies the account owner on whose behalf requests are sent
type UserProfile struct {
	Name  string
	Email string
}

// Envelope is a transport-ready outbound message
type Envelope struct {
	MessageID string
	From      string
	To        string
	Subject   string
	// Raw is the full RFC 5322 message in URL-safe base64
	Raw string
}

// Draft is a composed request before it is turned into an envelope
type Draft struct {
	Company     string
	RequestType RequestType
	To          string
	Subject     string
	Body        string
}
