package mongodb

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/task-manager-api/internal/domain"
	"github.com/phrazzld/task-manager-api/internal/platform/logger"
	"github.com/phrazzld/task-manager-api/internal/redact"
	"github.com/phrazzld/task-manager-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionProvider hands out collection handles. Manager implements it.
type CollectionProvider interface {
	Collection(name string) (*mongo.Collection, error)
}

// MongoTaskStore implements the store.TaskStore interface using MongoDB.
type MongoTaskStore struct {
	provider   CollectionProvider
	collection string
}

// Compile-time check to ensure MongoTaskStore implements store.TaskStore
var _ store.TaskStore = (*MongoTaskStore)(nil)

// NewMongoTaskStore creates a new MongoTaskStore over the named collection.
func NewMongoTaskStore(provider CollectionProvider, collection string) *MongoTaskStore {
	return &MongoTaskStore{
		provider:   provider,
		collection: collection,
	}
}

// taskDocument is the stored shape of a task.
type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	Category    string             `bson:"category"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	Tags        []string           `bson:"tags"`
	AssignedTo  string             `bson:"assignedTo,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func toDocument(id primitive.ObjectID, t *domain.Task) taskDocument {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return taskDocument{
		ID:          id,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Category:    t.Category,
		DueDate:     t.DueDate,
		Tags:        tags,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) toDomain() *domain.Task {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	var due *time.Time
	if d.DueDate != nil {
		v := domain.NormalizeTime(*d.DueDate)
		due = &v
	}
	return &domain.Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      domain.TaskStatus(d.Status),
		Priority:    domain.TaskPriority(d.Priority),
		Category:    d.Category,
		DueDate:     due,
		Tags:        tags,
		AssignedTo:  d.AssignedTo,
		CreatedAt:   domain.NormalizeTime(d.CreatedAt),
		UpdatedAt:   domain.NormalizeTime(d.UpdatedAt),
	}
}

func (s *MongoTaskStore) coll(operation string) (*mongo.Collection, error) {
	c, err := s.provider.Collection(s.collection)
	if err != nil {
		return nil, store.NewStoreError("task", operation, "collection unavailable", MapError(err))
	}
	return c, nil
}

// parseID converts a hex id to an ObjectID. Malformed ids cannot match any
// stored task and are reported as not found.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrTaskNotFound
	}
	return oid, nil
}

// wrap maps a driver error and attaches the operation context.
func wrap(operation string, err error) error {
	mapped := MapError(err)
	if errors.Is(mapped, store.ErrNotFound) {
		return store.NewStoreError("task", operation, "task not found", store.ErrTaskNotFound)
	}
	return store.NewStoreError("task", operation, "database error", mapped)
}

// EnsureIndexes creates the secondary indexes used by List. Failures are
// returned but leave the store usable.
func (s *MongoTaskStore) EnsureIndexes(ctx context.Context) error {
	c, err := s.coll("ensure_indexes")
	if err != nil {
		return err
	}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := c.Indexes().CreateMany(ctx, models); err != nil {
		return wrap("ensure_indexes", err)
	}
	return nil
}

// Create saves a new task and assigns its ID.
func (s *MongoTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, slog.Default())

	c, err := s.coll("create")
	if err != nil {
		return err
	}

	id := primitive.NewObjectID()
	if _, err := c.InsertOne(ctx, toDocument(id, task)); err != nil {
		log.Error("failed to insert task", "error", redact.Error(err))
		return wrap("create", err)
	}

	task.ID = id.Hex()
	return nil
}

// GetByID retrieves a task by its ID.
func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.coll("get")
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	if err := c.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrap("get", err)
	}
	return doc.toDomain(), nil
}

func filterDocument(f store.TaskFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	return filter
}

// List returns one page of matching tasks, newest first, and the total match count.
func (s *MongoTaskStore) List(
	ctx context.Context,
	filter store.TaskFilter,
	page store.Page,
) ([]*domain.Task, int64, error) {
	log := logger.FromContextOrDefault(ctx, slog.Default())

	c, err := s.coll("list")
	if err != nil {
		return nil, 0, err
	}

	query := filterDocument(filter)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(page.Skip())
	if page.Limit > 0 {
		opts.SetLimit(int64(page.Limit))
	}

	cursor, err := c.Find(ctx, query, opts)
	if err != nil {
		log.Error("failed to query tasks", "error", redact.Error(err))
		return nil, 0, wrap("list", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, wrap("list", err)
	}

	total, err := c.CountDocuments(ctx, query)
	if err != nil {
		log.Error("failed to count tasks", "error", redact.Error(err))
		return nil, 0, wrap("list", err)
	}

	tasks := make([]*domain.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.toDomain())
	}
	return tasks, total, nil
}

// Replace overwrites every mutable field of an existing task.
func (s *MongoTaskStore) Replace(ctx context.Context, task *domain.Task) error {
	oid, err := parseID(task.ID)
	if err != nil {
		return err
	}
	c, err := s.coll("update")
	if err != nil {
		return err
	}

	res, err := c.ReplaceOne(ctx, bson.M{"_id": oid}, toDocument(oid, task))
	if err != nil {
		return wrap("update", err)
	}
	if res.MatchedCount == 0 {
		return store.NewStoreError("task", "update", "task not found", store.ErrTaskNotFound)
	}
	return nil
}

// UpdateStatus sets status, moves updatedAt forward to updatedAt and returns
// the updated task. $max keeps updatedAt from going backwards, so it never
// precedes createdAt.
func (s *MongoTaskStore) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.TaskStatus,
	updatedAt time.Time,
) (*domain.Task, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.coll("update_status")
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$set": bson.M{"status": string(status)},
		"$max": bson.M{"updatedAt": domain.NormalizeTime(updatedAt)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	if err := c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, wrap("update_status", err)
	}
	return doc.toDomain(), nil
}

// Delete removes a task and returns it as it was before deletion.
func (s *MongoTaskStore) Delete(ctx context.Context, id string) (*domain.Task, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	c, err := s.coll("delete")
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	if err := c.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrap("delete", err)
	}
	return doc.toDomain(), nil
}

// statsPipeline counts everything in a single $group stage.
var statsPipeline = mongo.Pipeline{
	{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: nil},
		{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
		{Key: "pending", Value: countWhere("$status", string(domain.TaskStatusPending))},
		{Key: "inProgress", Value: countWhere("$status", string(domain.TaskStatusInProgress))},
		{Key: "completed", Value: countWhere("$status", string(domain.TaskStatusCompleted))},
		{Key: "highPriority", Value: countWhere("$priority", string(domain.TaskPriorityHigh))},
	}}},
}

func countWhere(field, value string) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{field, value}}}, 1, 0,
	}}}}}
}

type statsDocument struct {
	Total        int64 `bson:"total"`
	Pending      int64 `bson:"pending"`
	InProgress   int64 `bson:"inProgress"`
	Completed    int64 `bson:"completed"`
	HighPriority int64 `bson:"highPriority"`
}

// Stats computes aggregate counts over the whole collection.
func (s *MongoTaskStore) Stats(ctx context.Context) (domain.TaskStats, error) {
	c, err := s.coll("stats")
	if err != nil {
		return domain.TaskStats{}, err
	}

	cursor, err := c.Aggregate(ctx, statsPipeline)
	if err != nil {
		return domain.TaskStats{}, wrap("stats", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var rows []statsDocument
	if err := cursor.All(ctx, &rows); err != nil {
		return domain.TaskStats{}, wrap("stats", err)
	}
	if len(rows) == 0 {
		return domain.TaskStats{}, nil
	}
	r := rows[0]
	return domain.TaskStats{
		Total:        r.Total,
		Pending:      r.Pending,
		InProgress:   r.InProgress,
		Completed:    r.Completed,
		HighPriority: r.HighPriority,
	}, nil
}
