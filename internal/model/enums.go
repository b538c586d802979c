package model

// LinkState is the per-chat conversation state of the account-linking flow.
// It lives only in process memory; a restart drops all sessions.
type LinkState string

const (
	LinkStateAwaitingEmail LinkState = "awaiting_email"
	LinkStateAwaitingCode  LinkState = "awaiting_code"
)
