package domain

import "strings"

// RawEvent is a single feed notification, optionally completed with the
// transaction message once it has been loaded.
type RawEvent struct {
	EventID      string   // transaction signature
	Slot         int64    // Solana slot number (0 if unknown)
	LogLines     []string // program log lines, in order
	AccountKeys  []string // resolved account keys (static + loaded)
	Instructions []Instruction
	Err          interface{} // transaction error from the notification, nil on success
}

// Instruction is a top-level compiled instruction.
// Indices refer to the owning RawEvent's AccountKeys.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
}

// Text joins the log lines for marker matching.
func (e RawEvent) Text() string {
	return strings.Join(e.LogLines, "\n")
}

// HasTransaction reports whether the transaction message has been loaded.
func (e RawEvent) HasTransaction() bool {
	return len(e.AccountKeys) > 0
}

// Failed reports whether the transaction failed on chain.
func (e RawEvent) Failed() bool {
	return e.Err != nil
}

// AccountKey resolves an index into AccountKeys.
// Returns false when the index is out of range.
func (e RawEvent) AccountKey(index int) (string, bool) {
	if index < 0 || index >= len(e.AccountKeys) {
		return "", false
	}
	return e.AccountKeys[index], true
}
