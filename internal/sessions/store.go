package sessions

import (
	"context"

	"github.com/relaymind/agentcore/pkg/agentapi"
)

// Store is the interface for session persistence.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, session *agentapi.Session) error
	Get(ctx context.Context, id string) (*agentapi.Session, error)
	Update(ctx context.Context, session *agentapi.Session) error
	Delete(ctx context.Context, id string) error

	// Session lookup
	GetByKey(ctx context.Context, key string) (*agentapi.Session, error)
	GetOrCreate(ctx context.Context, key string, agentID string, channel agentapi.ChannelType, channelID string) (*agentapi.Session, error)
	List(ctx context.Context, agentID string, opts ListOptions) ([]*agentapi.Session, error)

	// Message history
	AppendMessage(ctx context.Context, sessionID string, msg *agentapi.Message) error
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*agentapi.Message, error)
}

// ListOptions configures session listing.
type ListOptions struct {
	Channel agentapi.ChannelType
	Limit   int
	Offset  int
}

// SessionKey builds a unique session key.
func SessionKey(agentID string, channel agentapi.ChannelType, channelID string) string {
	return agentID + ":" + string(channel) + ":" + channelID
}
