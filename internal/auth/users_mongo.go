package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Timezone     string    `bson:"timezone"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// MongoUsers keeps accounts in the users collection; the unique email
// index comes from db.EnsureMongoIndexes.
type MongoUsers struct {
	users  *mongo.Collection
	events *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{
		users:  db.Collection("users"),
		events: db.Collection("analytics_events"),
	}
}

func (s *MongoUsers) CreateUser(ctx context.Context, u *User) error {
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Timezone:     u.Timezone,
		CreatedAt:    u.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoUsers) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUsers) UserByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var d userDoc
	err := s.users.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Timezone:     d.Timezone,
		CreatedAt:    d.CreatedAt,
	}, nil
}

// DeleteUser is not transactional: standalone servers have no multi
// document transactions, so events go first and the account last.
func (s *MongoUsers) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.events.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return fmt.Errorf("delete analytics_events: %w", err)
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
