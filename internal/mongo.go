package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"qpay/config"
	"qpay/entity"
	"qpay/services"
)

const (
	collectionLog      = "payment_log"
	collectionOrders   = "orders"
	collectionEvents   = "events"
	collectionActions  = "required_actions"
	collectionSessions = "sessions"
)

type MongoDB struct {
	ctx              context.Context
	clientOptions    *options.ClientOptions
	database         string
	logRecordsNumber int64
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:              context.Background(),
		clientOptions:    clientOptions,
		database:         conf.Mongo.Database,
		logRecordsNumber: conf.LogRecords,
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil {
		log.Println("mongodb disconnect error", err)
	}
}

func (m *MongoDB) WriteLogMessage(data services.Data) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	_, err = collection.InsertOne(m.ctx, data)
	return err
}

func (m *MongoDB) GetOrder(ctx context.Context, code string) (*entity.Order, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "code", Value: code}}
	var order entity.Order
	if err = collection.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (m *MongoDB) SavePaymentInfo(ctx context.Context, code string, info string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "code", Value: code}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "payment_info", Value: info},
		}},
	}
	if _, err = collection.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (m *MongoDB) AppendOrderLog(ctx context.Context, code string, action string, data string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "code", Value: code}}
	update := bson.D{
		{Key: "$push", Value: bson.D{
			{Key: "audit_log", Value: entity.OrderLogEntry{
				Action: action,
				Data:   data,
				Time:   time.Now(),
			}},
		}},
	}
	if _, err = collection.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

// MarkOrderPaid claims one unit of the event's capacity with a conditional
// update before flipping the order status, so concurrent confirmations
// cannot oversell the event.
func (m *MongoDB) MarkOrderPaid(ctx context.Context, order *entity.Order, provider string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	events := connection.Database(m.database).Collection(collectionEvents)
	claim := bson.D{
		{Key: "slug", Value: order.EventSlug},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "capacity", Value: bson.D{{Key: "$lte", Value: 0}}}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{"$paid_count", "$capacity"}}}}},
		}},
	}
	result, err := events.UpdateOne(ctx, claim, bson.D{{Key: "$inc", Value: bson.D{{Key: "paid_count", Value: 1}}}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		if err := events.FindOne(ctx, bson.D{{Key: "slug", Value: order.EventSlug}}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("unknown event %s", order.EventSlug)
		}
		return entity.ErrQuotaExceeded
	}

	orders := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "code", Value: order.Code}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: entity.StatusPaid},
			{Key: "payment_provider", Value: provider},
		}},
	}
	if _, err = orders.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (m *MongoDB) MarkOrderRefunded(ctx context.Context, order *entity.Order, provider string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionOrders)
	filter := bson.D{{Key: "code", Value: order.Code}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: entity.StatusRefunded},
			{Key: "payment_provider", Value: provider},
		}},
	}
	if _, err = collection.UpdateOne(ctx, filter, update); err != nil {
		return err
	}
	return nil
}

func (m *MongoDB) FindRequiredAction(ctx context.Context, event, actionType, orderCode string) (*entity.RequiredAction, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionActions)
	filter := bson.D{{Key: "event", Value: event}, {Key: "action_type", Value: actionType}, {Key: "order", Value: orderCode}}
	var action entity.RequiredAction
	if err = collection.FindOne(ctx, filter).Decode(&action); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

// CreateRequiredAction upserts on the structured key, so concurrent or
// repeated delivery of the same gateway event keeps a single record.
func (m *MongoDB) CreateRequiredAction(ctx context.Context, action *entity.RequiredAction) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionActions)
	filter := bson.D{{Key: "event", Value: action.Event}, {Key: "action_type", Value: action.ActionType}, {Key: "order", Value: action.OrderCode}}
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "data", Value: action.Data},
			{Key: "time", Value: action.Time},
		}},
	}
	_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	return nil
}

type sessionDocument struct {
	SessionID string            `bson:"session_id"`
	Values    map[string]string `bson:"values"`
}

func (m *MongoDB) Get(ctx context.Context, sessionID, key string) (string, error) {
	connection, err := m.connect()
	if err != nil {
		return "", err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionSessions)
	filter := bson.D{{Key: "session_id", Value: sessionID}}
	var document sessionDocument
	if err = collection.FindOne(ctx, filter).Decode(&document); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}
	return document.Values[key], nil
}

func (m *MongoDB) Set(ctx context.Context, sessionID, key, value string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionSessions)
	filter := bson.D{{Key: "session_id", Value: sessionID}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "values." + key, Value: value},
		}},
	}
	_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
