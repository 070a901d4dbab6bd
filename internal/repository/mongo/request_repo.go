package mongo

/*
Файл request_repo.go — адаптер документного хранилища заявок поверх MongoDB.
Наружу отдаются только domain.Request и domain.Document: ObjectID превращается
в hex-строку на границе адаптера и дальше не путешествует.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/reqtrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// requestDoc — форма документа в коллекции. Поля совпадают с историческими документами.
type requestDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Description string             `bson:"description"`
	Status      string             `bson:"status"`
	AssignedBy  string             `bson:"assigned_by"`
	AssignedTo  string             `bson:"assigned_to"`
}

func (d requestDoc) toDomain() domain.Request {
	return domain.Request{
		ID:          d.ID.Hex(),
		Description: d.Description,
		Status:      domain.RequestStatus(d.Status),
		AssignedBy:  d.AssignedBy,
		AssignedTo:  d.AssignedTo,
	}
}

type RequestRepo struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
}

// Connect открывает клиента MongoDB. Доступность проверяется отдельно через Ping.
func Connect(ctx context.Context, uri, database, collection string, timeout time.Duration) (*RequestRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}
	repo := NewRequestRepo(client.Database(database).Collection(collection), timeout)
	repo.client = client
	return repo, nil
}

// NewRequestRepo оборачивает готовую коллекцию.
func NewRequestRepo(coll *mongo.Collection, timeout time.Duration) *RequestRepo {
	return &RequestRepo{coll: coll, timeout: timeout}
}

// Ping проверяет доступность базы при старте
func (r *RequestRepo) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.coll.Database().Client().Ping(ctx, nil)
}

// Close отпускает пул соединений при остановке процесса.
func (r *RequestRepo) Close(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Disconnect(ctx)
}

func (r *RequestRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("mongo: malformed request id %q: %w", id, err)
	}
	return oid, nil
}

// Insert сохраняет заявку и возвращает присвоенный хранилищем id.
func (r *RequestRepo) Insert(ctx context.Context, req *domain.Request) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := requestDoc{
		Description: req.Description,
		Status:      string(req.Status),
		AssignedBy:  req.AssignedBy,
		AssignedTo:  req.AssignedTo,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("mongo: failed to insert request: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongo: unexpected inserted id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindByID возвращает (nil, nil), если заявки нет.
func (r *RequestRepo) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc requestDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: failed to find request: %w", err)
	}

	req := doc.toDomain()
	return &req, nil
}

// FindAll выбирает всю коллекцию в естественном порядке хранилища.
func (r *RequestRepo) FindAll(ctx context.Context) ([]domain.Request, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to list requests: %w", err)
	}

	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: failed to decode requests: %w", err)
	}

	results := make([]domain.Request, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.toDomain())
	}
	return results, nil
}

// UpdateStatus меняет только поле status. Возвращает число совпавших документов.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (int64, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{domain.FieldStatus: string(status)}},
	)
	if err != nil {
		return 0, fmt.Errorf("mongo: failed to update status: %w", err)
	}
	return res.MatchedCount, nil
}

// DeleteByID удаляет заявку навсегда. Возвращает число удаленных документов.
func (r *RequestRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("mongo: failed to delete request: %w", err)
	}
	return res.DeletedCount, nil
}

// Documents читает коллекцию как есть, со всеми полями, для табличной выгрузки.
func (r *RequestRepo) Documents(ctx context.Context) ([]domain.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to read documents: %w", err)
	}

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("mongo: failed to decode documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(raw))
	for _, m := range raw {
		doc := make(domain.Document, len(m))
		for k, v := range m {
			doc[k] = stringify(v)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// stringify приводит значения BSON к строке ячейки таблицы.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339)
	case primitive.M, primitive.D:
		if out, err := bson.MarshalExtJSON(val, false, false); err == nil {
			return string(out)
		}
		return fmt.Sprint(val)
	case primitive.A:
		// MarshalExtJSON принимает только документы: заворачиваем массив и достаем его обратно
		out, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: val}}, false, false)
		if err != nil {
			return fmt.Sprint(val)
		}
		var wrapped struct {
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(out, &wrapped); err != nil {
			return fmt.Sprint(val)
		}
		return string(wrapped.V)
	default:
		return fmt.Sprint(val)
	}
}
