package interfaces

import "context"

// Messenger delivers a formatted text message to a chat destination.
// Implementations truncate to the transport maximum before sending.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}
