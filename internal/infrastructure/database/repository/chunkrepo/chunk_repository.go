package chunkrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/database/dbschema"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
	"knowledge-assist/chat-api/pkg/chatwire"
)

type ChunkGormStore struct {
	db *gorm.DB
}

var _ conversation.ChunkStore = (*ChunkGormStore)(nil)

func NewChunkGormStore(db *gorm.DB) conversation.ChunkStore {
	return &ChunkGormStore{db: db}
}

// Append implements conversation.ChunkStore. The insert ignores conflicts on
// the (message_key, sequence) unique index, so a retried write of a chunk
// that already landed changes nothing.
func (store *ChunkGormStore) Append(ctx context.Context, key string, env *chatwire.Envelope) error {
	row := dbschema.NewSchemaMessageChunk(key, env)
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_key"}, {Name: "sequence"}},
			DoNothing: true,
		}).
		Create(row).Error
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to append message chunk")
	}
	return nil
}

// Read implements conversation.ChunkStore.
func (store *ChunkGormStore) Read(ctx context.Context, messageID string) ([]*chatwire.Envelope, error) {
	var rows []dbschema.MessageChunk
	err := store.db.WithContext(ctx).
		Where("message_key = ?", messageID).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to read message chunks")
	}

	envelopes := make([]*chatwire.Envelope, 0, len(rows))
	for i := range rows {
		envelopes = append(envelopes, rows[i].EtoD())
	}
	return envelopes, nil
}

// DeleteProvisionalOlderThan implements conversation.ChunkStore. Provisional
// keys that never got re-keyed belong to turns that failed before finalize
// with nothing worth keeping, or crashed mid-flight.
func (store *ChunkGormStore) DeleteProvisionalOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result := store.db.WithContext(ctx).
		Where(`message_key LIKE 'prov\_%' AND created_at < ?`, cutoff).
		Delete(&dbschema.MessageChunk{})
	if result.Error != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerRepository, result.Error, "failed to delete provisional chunks")
	}
	return result.RowsAffected, nil
}
