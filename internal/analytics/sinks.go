package analytics

import (
	"context"
	"database/sql"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SQLSink writes to the analytics_events table.
type SQLSink struct {
	db *sql.DB
}

func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

func (s *SQLSink) Insert(ctx context.Context, ev Event) error {
	env := ev.Envelope

	// If source_event_key duplicates -> do nothing
	if ev.SourceEventKey != "" {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO analytics_events (
				event_name, event_time,
				user_id, session_id,
				platform, app_version, device_locale, ip_country,
				source_event_key,
				properties
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
			ON CONFLICT (source_event_key) DO NOTHING
		`, ev.Name, ev.Time,
			env.UserID, nullIfEmpty(env.SessionID),
			env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale), nullIfEmpty(env.IPCountry),
			ev.SourceEventKey,
			string(ev.Properties),
		)
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, event_time,
			user_id, session_id,
			platform, app_version, device_locale, ip_country,
			properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
	`, ev.Name, ev.Time,
		env.UserID, nullIfEmpty(env.SessionID),
		env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale), nullIfEmpty(env.IPCountry),
		string(ev.Properties),
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// MongoSink writes to an analytics_events collection. The unique index on
// source_event_key is created by db.EnsureMongoIndexes.
type MongoSink struct {
	coll *mongo.Collection
}

func NewMongoSink(db *mongo.Database) *MongoSink {
	return &MongoSink{coll: db.Collection("analytics_events")}
}

func (s *MongoSink) Insert(ctx context.Context, ev Event) error {
	env := ev.Envelope

	var props bson.M
	if err := bson.UnmarshalExtJSON(ev.Properties, false, &props); err != nil {
		props = bson.M{}
	}

	doc := bson.M{
		"event_name":  ev.Name,
		"event_time":  ev.Time,
		"user_id":     env.UserID,
		"platform":    env.Platform,
		"app_version": env.AppVersion,
		"properties":  props,
	}
	if env.SessionID != "" {
		doc["session_id"] = env.SessionID
	}
	if env.DeviceLocale != "" {
		doc["device_locale"] = env.DeviceLocale
	}
	if env.IPCountry != "" {
		doc["ip_country"] = env.IPCountry
	}
	if ev.SourceEventKey != "" {
		doc["source_event_key"] = ev.SourceEventKey
	}

	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}
