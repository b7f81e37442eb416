package models

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/config"
)

type Auth struct {
	Token string // argon2id hash, never the plaintext
	Note  string // non-sensitive label, safe to log
	Model
	Active datatypes.Null[bool]
}

func (Auth) TableName() string {
	return "auth"
}

func (a Auth) GetID() uuid.UUID {
	return a.ID
}

// LoadAPIKeysFromConfig makes the config's users list authoritative for the
// auth table: every configured key is upserted (tokens arrive pre-hashed,
// from keygen), and any key present in the table but absent from the config
// is deactivated rather than deleted.
func LoadAPIKeysFromConfig(ctx context.Context, db *gorm.DB, users []config.User) error {
	ctx, span := tracer.Start(ctx, "LoadAPIKeysFromConfig")
	defer span.End()

	db = db.WithContext(ctx)

	upserts := make([]*Auth, len(users))
	configured := make([]uuid.UUID, len(users))
	for i, user := range users {
		userID, err := uuid.Parse(user.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error parsing user id")
			span.SetAttributes(attribute.String("failedUser", user.ID))
			return err
		}

		upserts[i] = &Auth{
			Model:  Model{ID: userID},
			Token:  user.APIKey.Token,
			Note:   user.Note,
			Active: NewNull(user.APIKey.Active),
		}
		configured[i] = userID
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "LoadAPIKeysFromConfig/Transaction")
		defer span.End()

		tx = tx.WithContext(ctx)

		if len(upserts) != 0 {
			span.AddEvent("upserting configured keys")
			result := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(upserts)
			if result.Error != nil {
				span.RecordError(result.Error)
				span.SetStatus(codes.Error, "failed to upsert configured keys")
				return fmt.Errorf("failed to upsert configured keys: %w", result.Error)
			}
			if result.RowsAffected != int64(len(users)) {
				span.AddEvent("upserted row count differs from configured key count")
				span.SetAttributes(
					attribute.Int64("rowsAffected", result.RowsAffected),
					attribute.Int64("users", int64(len(users))),
				)
			}
		} else {
			span.AddEvent("no configured keys to upsert")
		}

		span.AddEvent("deactivating keys missing from config")

		result := tx.Model(&Auth{}).
			Where("id NOT IN ?", configured).
			Updates(&Auth{Active: NewNullFromData(false)})
		if result.Error != nil {
			span.RecordError(result.Error)
			span.SetStatus(codes.Error, "failed to deactivate keys missing from config")
			return fmt.Errorf(
				"failed to deactivate keys missing from config: %w",
				result.Error,
			)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "synced keys")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to sync api keys")
		return fmt.Errorf("failed to sync api keys: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "synced api keys")
	return nil
}
