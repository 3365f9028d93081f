package transfer

import "fmt"

// Result is the outcome of one upload. Failures carry the reason and a
// support code; the transfer step never reports failure any other way.
type Result struct {
	Reason error
	Code   Code
}

// Success returns a successful Result.
func Success() Result {
	return Result{}
}

// Failure returns a failed Result. A nil reason is replaced with a generic one
// so a failure can never be mistaken for success.
func Failure(reason error) Result {
	if reason == nil {
		reason = fmt.Errorf("transfer failed")
	}
	return Result{Reason: reason, Code: Classify(reason).Code}
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool {
	return r.Reason == nil
}

func (r Result) String() string {
	if r.OK() {
		return "success"
	}
	return fmt.Sprintf("failure [%s]: %v", r.Code, r.Reason)
}

// State tracks the client through one session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTransferring
	StateTransferred
	StateTransferFailed
	StateClosed
	// StateAborted is terminal: connecting failed and no session exists to close.
	StateAborted
)

var stateNames = [...]string{
	StateDisconnected:   "disconnected",
	StateConnecting:     "connecting",
	StateConnected:      "connected",
	StateTransferring:   "transferring",
	StateTransferred:    "transferred",
	StateTransferFailed: "transfer_failed",
	StateClosed:         "closed",
	StateAborted:        "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}
