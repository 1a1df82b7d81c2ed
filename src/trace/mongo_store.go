package trace

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hdlforge/go-hdlforge/src/events"
)

const mongoCloseTimeout = 5 * time.Second

// MongoStore persists traces as documents in two collections.
type MongoStore struct {
	client *mongo.Client
	events *mongo.Collection
	tasks  *mongo.Collection
}

// NewMongoStore connects to MongoDB and returns a document-backed Store.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{
		client: client,
		events: db.Collection("agent_events"),
		tasks:  db.Collection("agent_tasks"),
	}, nil
}

func (ms *MongoStore) AppendEvent(ctx context.Context, event events.Event) error {
	if ms == nil || ms.events == nil {
		return nil
	}
	doc := bson.M{
		"session_id": event.SessionID,
		"agent_id":   event.AgentID,
		"kind":       string(event.Kind),
		"tool":       event.Tool,
		"call_id":    event.CallID,
		"attempt":    event.Attempt,
		"duration":   event.Duration.Milliseconds(),
		"success":    event.Success,
		"error":      event.Error,
		"detail":     event.Detail,
		"created_at": event.Time,
	}
	_, err := ms.events.InsertOne(ctx, doc)
	return err
}

func (ms *MongoStore) SaveTask(ctx context.Context, task TaskRecord) error {
	if ms == nil || ms.tasks == nil {
		return nil
	}
	doc := bson.M{
		"_id":         task.ID,
		"session_id":  task.SessionID,
		"agent_id":    task.AgentID,
		"description": task.Description,
		"status":      task.Status,
		"output":      task.Output,
		"error":       task.Error,
		"artifacts":   task.Artifacts,
		"duration":    task.Duration.Milliseconds(),
		"created_at":  task.CreatedAt,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := ms.tasks.ReplaceOne(ctx, bson.M{"_id": task.ID}, doc, opts)
	return err
}

func (ms *MongoStore) History(ctx context.Context, sessionID string, limit int) ([]events.Event, error) {
	if ms == nil || ms.events == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1}).SetLimit(int64(limit))
	cursor, err := ms.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []events.Event
	for cursor.Next(ctx) {
		var doc struct {
			SessionID string         `bson:"session_id"`
			AgentID   string         `bson:"agent_id"`
			Kind      string         `bson:"kind"`
			Tool      string         `bson:"tool"`
			CallID    string         `bson:"call_id"`
			Attempt   int            `bson:"attempt"`
			Duration  int64          `bson:"duration"`
			Success   bool           `bson:"success"`
			Error     string         `bson:"error"`
			Detail    map[string]any `bson:"detail"`
			CreatedAt time.Time      `bson:"created_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out = append(out, events.Event{
			Time:      doc.CreatedAt,
			Kind:      events.Kind(doc.Kind),
			SessionID: doc.SessionID,
			AgentID:   doc.AgentID,
			Tool:      doc.Tool,
			CallID:    doc.CallID,
			Attempt:   doc.Attempt,
			Duration:  durationFromMillis(doc.Duration),
			Success:   doc.Success,
			Error:     doc.Error,
			Detail:    doc.Detail,
		})
	}
	return out, cursor.Err()
}

func (ms *MongoStore) Tasks(ctx context.Context, sessionID string, limit int) ([]TaskRecord, error) {
	if ms == nil || ms.tasks == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	filter := bson.M{}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}
	opts := options.Find().SetSort(bson.M{"created_at": 1}).SetLimit(int64(limit))
	cursor, err := ms.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []TaskRecord
	for cursor.Next(ctx) {
		var doc struct {
			ID          string    `bson:"_id"`
			SessionID   string    `bson:"session_id"`
			AgentID     string    `bson:"agent_id"`
			Description string    `bson:"description"`
			Status      string    `bson:"status"`
			Output      string    `bson:"output"`
			Error       string    `bson:"error"`
			Artifacts   []string  `bson:"artifacts"`
			Duration    int64     `bson:"duration"`
			CreatedAt   time.Time `bson:"created_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		out = append(out, TaskRecord{
			ID:          doc.ID,
			SessionID:   doc.SessionID,
			AgentID:     doc.AgentID,
			Description: doc.Description,
			Status:      doc.Status,
			Output:      doc.Output,
			Error:       doc.Error,
			Artifacts:   doc.Artifacts,
			Duration:    durationFromMillis(doc.Duration),
			CreatedAt:   doc.CreatedAt,
		})
	}
	return out, cursor.Err()
}

// Close disconnects from MongoDB.
func (ms *MongoStore) Close(ctx context.Context) error {
	if ms == nil || ms.client == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mongoCloseTimeout)
		defer cancel()
	}
	return ms.client.Disconnect(ctx)
}

func durationFromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

var _ Store = (*MongoStore)(nil)
