package chat

import (
	"context"

	"github.com/futig/formchat-backend/internal/entity"
)

type ConversationUsecase interface {
	Ingest(ctx context.Context, sessionID string, doc *entity.Document, displayLanguage string) (string, error)
	SubmitTurn(ctx context.Context, sessionID, text, declaredLanguage string) (*entity.TurnReply, error)
	RephraseCurrent(ctx context.Context, sessionID string) (string, error)
	Snapshot(sessionID string) (*entity.SessionSnapshot, error)
	ResolveSessionID(sessionID string) string
}

type ArtifactStore interface {
	Open(handle string) (*entity.Artifact, []byte, error)
}
