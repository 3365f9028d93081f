package transfer

// errors.go maps transfer failures to support codes so that an operator
// reading the run log can tell a wrong password from a full disk at a glance.
//
//	SFTP001 - Connection refused: nothing listening on host:port
//	SFTP002 - Authentication failed: username/password rejected
//	SFTP003 - Permission denied: remote directory not writable
//	SFTP004 - No such file: remote directory does not exist
//	SFTP005 - Timeout: host unreachable or handshake stalled
//	SFTP006 - Host key mismatch: known_hosts entry does not match
//	SFTP007 - Name resolution: hostname does not resolve
//	SFTP000 - Unknown: check the error text in the log
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns come before general ones.

import "strings"

// Code is a support reference for a transfer failure.
type Code string

// Diagnosis explains a transfer failure.
type Diagnosis struct {
	Code    Code
	Message string // What happened
	Action  string // What to do about it
}

type errorPattern struct {
	pattern string
	diag    Diagnosis
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		diag: Diagnosis{
			Code:    "SFTP001",
			Message: "Connection refused by the SFTP server",
			Action:  "Check SFTP_HOSTNAME and SFTP_PORT",
		},
	},
	{
		pattern: "unable to authenticate",
		diag: Diagnosis{
			Code:    "SFTP002",
			Message: "SFTP authentication failed",
			Action:  "Check SFTP_USERNAME and SFTP_PASSWORD",
		},
	},
	{
		pattern: "key mismatch",
		diag: Diagnosis{
			Code:    "SFTP006",
			Message: "SFTP host key does not match known_hosts",
			Action:  "Confirm the new key with the supplier, then update SFTP_KNOWN_HOSTS",
		},
	},
	{
		pattern: "key is unknown",
		diag: Diagnosis{
			Code:    "SFTP006",
			Message: "SFTP host is not in known_hosts",
			Action:  "Add the supplier's host key to SFTP_KNOWN_HOSTS",
		},
	},
	{
		pattern: "permission denied",
		diag: Diagnosis{
			Code:    "SFTP003",
			Message: "Remote path is not writable",
			Action:  "Check SFTP_REMOTE_DIR and the account's permissions",
		},
	},
	{
		pattern: "does not exist",
		diag: Diagnosis{
			Code:    "SFTP004",
			Message: "Remote directory does not exist",
			Action:  "Check SFTP_REMOTE_DIR",
		},
	},
	{
		pattern: "no such file",
		diag: Diagnosis{
			Code:    "SFTP004",
			Message: "Remote directory does not exist",
			Action:  "Check SFTP_REMOTE_DIR",
		},
	},
	{
		pattern: "no such host",
		diag: Diagnosis{
			Code:    "SFTP007",
			Message: "SFTP hostname does not resolve",
			Action:  "Check SFTP_HOSTNAME and DNS",
		},
	},
	{
		pattern: "timeout",
		diag: Diagnosis{
			Code:    "SFTP005",
			Message: "SFTP connection timed out",
			Action:  "Check network reachability or raise SFTP_DIAL_TIMEOUT",
		},
	},
	{
		pattern: "deadline exceeded",
		diag: Diagnosis{
			Code:    "SFTP005",
			Message: "SFTP connection timed out",
			Action:  "Check network reachability or raise SFTP_DIAL_TIMEOUT",
		},
	},
}

var unknownDiagnosis = Diagnosis{
	Code:    "SFTP000",
	Message: "Unexpected transfer error",
	Action:  "See the error text in the log",
}

// Classify returns the diagnosis for err. A nil error yields the zero Diagnosis.
func Classify(err error) Diagnosis {
	if err == nil {
		return Diagnosis{}
	}
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.diag
		}
	}
	return unknownDiagnosis
}
