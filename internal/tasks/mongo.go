package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type taskDoc struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"userId"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Status      Status     `bson:"status"`
	Priority    Priority   `bson:"priority"`
	DueDate     *time.Time `bson:"dueDate"`
	Subtasks    []Subtask  `bson:"subtasks"`
	AIGenerated bool       `bson:"aiGenerated"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   *time.Time `bson:"updatedAt,omitempty"`
}

func (d taskDoc) task() Task {
	t := Task(d)
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return t
}

// MongoStore keeps tasks in the tasks collection, indexed on
// (userId, createdAt) by db.EnsureMongoIndexes.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("tasks")}
}

func (s *MongoStore) List(ctx context.Context, userID string, f Filter) ([]Task, error) {
	filter := bson.M{"userId": userID}
	switch f.Status {
	case FilterActive:
		filter["status"] = bson.M{"$ne": StatusDone}
	case FilterCompleted:
		filter["status"] = StatusDone
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"title": re}, bson.M{"description": re}}
	}

	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	defer cur.Close(ctx)

	result := []Task{}
	for cur.Next(ctx) {
		var d taskDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		result = append(result, d.task())
	}
	return result, cur.Err()
}

func (s *MongoStore) Get(ctx context.Context, userID, id string) (*Task, error) {
	var d taskDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	t := d.task()
	return &t, nil
}

func (s *MongoStore) Create(ctx context.Context, t *Task) error {
	if _, err := s.coll.InsertOne(ctx, taskDoc(*t)); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, userID, id string, p Patch) (*Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	} else if p.ClearDueDate {
		set["dueDate"] = nil
	}
	if p.Subtasks != nil {
		set["subtasks"] = *p.Subtasks
	}
	if p.AIGenerated != nil {
		set["aiGenerated"] = *p.AIGenerated
	}

	var d taskDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	t := d.task()
	return &t, nil
}

func (s *MongoStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteForUser(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}
