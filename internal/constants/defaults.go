package constants

import "time"

// Messaging core limits
const (
	// RecallWindow is how long after sending a message its sender may still
	// recall it. The client-side check is advisory; the server enforces the
	// same window authoritatively.
	RecallWindow = 180 * time.Second

	MaxDraftChars   = 2000
	DefaultPageSize = 20

	MaxImageSizeMB      = 5
	MaxAttachmentSizeMB = 10
)

// Unread badge polling
const (
	DefaultUnreadPollIntervalSec = 30
)

// Placeholder content substituted when a message carries an attachment but no
// text, and shown in place of a recalled message's body.
const (
	ImagePlaceholder      = "[image]"
	AttachmentPlaceholder = "[attachment]"
	RecalledPlaceholder   = "message recalled"
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec        = 30
	DefaultGracefulShutdownSec   = 30
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
)

// Default dev server values
const (
	DefaultServerPort = 8084
)

// At-rest encryption parameters for the dev server store
const (
	EncryptionSalt         = "blogmsg-store-v1"
	EncryptionKeySize      = 32
	EncryptionNonceSize    = 12
	EncryptionIterations   = 100000
	MinEncryptionSecretLen = 32
)
