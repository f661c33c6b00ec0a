// Package ledger anchors audit events (fingerprint registration, kill
// switch activation, message hashes, forward traces, leak evidence) on an
// external tamper-evident ledger.
//
// The ledger is a secondary audit trail, never an authorization source:
// every mutating call is best effort, and callers proceed on local state
// when the ledger is unreachable or unconfigured.
package ledger

import (
	"context"
)

// Client is the port the core calls through. Mutating methods return the
// transaction reference, or "" when the event could not be anchored.
// IsFingerprintKilled defaults to false on any failure; the local media
// store stays authoritative for access decisions.
type Client interface {
	RegisterFingerprint(ctx context.Context, fingerprint, locationHint string) (string, error)
	KillFingerprint(ctx context.Context, fingerprint string) (string, error)
	LogMessageHash(ctx context.Context, messageID, hash string) (string, error)
	TraceForward(ctx context.Context, originalMessageID, forwardedMessageID string, granted bool) (string, error)
	ReportLeak(ctx context.Context, reportID, fingerprint, sourceURL string) (string, error)
	IsFingerprintKilled(ctx context.Context, fingerprint string) (bool, error)
}

// Disabled is the adapter used when no signer key is configured. All
// events are dropped and reads answer "not killed".
type Disabled struct{}

func (Disabled) RegisterFingerprint(ctx context.Context, fingerprint, locationHint string) (string, error) {
	return "", nil
}

func (Disabled) KillFingerprint(ctx context.Context, fingerprint string) (string, error) {
	return "", nil
}

func (Disabled) LogMessageHash(ctx context.Context, messageID, hash string) (string, error) {
	return "", nil
}

func (Disabled) TraceForward(ctx context.Context, originalMessageID, forwardedMessageID string, granted bool) (string, error) {
	return "", nil
}

func (Disabled) ReportLeak(ctx context.Context, reportID, fingerprint, sourceURL string) (string, error) {
	return "", nil
}

func (Disabled) IsFingerprintKilled(ctx context.Context, fingerprint string) (bool, error) {
	return false, nil
}
