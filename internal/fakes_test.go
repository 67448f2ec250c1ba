package internal

import (
	"context"
	"sync"

	"qpay/config"
	"qpay/entity"
	"qpay/services"
)

// fakeDatabase is an in-memory services.Database for tests. The mutex makes
// it safe for the concurrent-delivery tests.
type fakeDatabase struct {
	mu       sync.Mutex
	orders   map[string]*entity.Order
	events   map[string]*entity.Event
	actions  []entity.RequiredAction
	auditLog map[string][]entity.OrderLogEntry
	records  []services.Data
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{
		orders:   make(map[string]*entity.Order),
		events:   make(map[string]*entity.Event),
		auditLog: make(map[string][]entity.OrderLogEntry),
	}
}

func (f *fakeDatabase) WriteLogMessage(data services.Data) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, data)
	return nil
}

func (f *fakeDatabase) GetOrder(_ context.Context, code string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[code]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeDatabase) SavePaymentInfo(_ context.Context, code string, info string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if order, ok := f.orders[code]; ok {
		order.PaymentInfo = info
	}
	return nil
}

func (f *fakeDatabase) AppendOrderLog(_ context.Context, code string, action string, data string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditLog[code] = append(f.auditLog[code], entity.OrderLogEntry{Action: action, Data: data})
	return nil
}

func (f *fakeDatabase) MarkOrderPaid(_ context.Context, order *entity.Order, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[order.EventSlug]
	if !ok {
		return entity.ErrQuotaExceeded
	}
	if event.Capacity > 0 && event.PaidCount >= event.Capacity {
		return entity.ErrQuotaExceeded
	}
	event.PaidCount++
	f.orders[order.Code].Status = entity.StatusPaid
	return nil
}

func (f *fakeDatabase) MarkOrderRefunded(_ context.Context, order *entity.Order, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.Code].Status = entity.StatusRefunded
	return nil
}

func (f *fakeDatabase) FindRequiredAction(_ context.Context, event, actionType, orderCode string) (*entity.RequiredAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.actions {
		a := f.actions[i]
		if a.Event == event && a.ActionType == actionType && a.OrderCode == orderCode {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeDatabase) CreateRequiredAction(_ context.Context, action *entity.RequiredAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actions {
		if a.Event == action.Event && a.ActionType == action.ActionType && a.OrderCode == action.OrderCode {
			return nil
		}
	}
	f.actions = append(f.actions, *action)
	return nil
}

// fakeSessions is an in-memory services.SessionStore.
type fakeSessions struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		values: make(map[string]map[string]string),
	}
}

func (f *fakeSessions) Get(_ context.Context, sessionID, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[sessionID][key], nil
}

func (f *fakeSessions) Set(_ context.Context, sessionID, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[sessionID] == nil {
		f.values[sessionID] = make(map[string]string)
	}
	f.values[sessionID][key] = value
	return nil
}

const testSecret = "B8AKTPWBRMNBV455FG6M2DANE99WU2"

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.Gateway.CustomerID = "D200001"
	conf.Gateway.Secret = testSecret
	conf.Gateway.PublicURL = "https://pay.example.com"
	conf.Gateway.ShopURL = "https://tickets.example.com"
	conf.Gateway.ServiceURL = "https://example.com/imprint"
	conf.Gateway.Methods = []string{"cc", "paypal", "sofort", "poli"}
	return conf
}

func testOrder() *entity.Order {
	return &entity.Order{
		Code:          "ABCDE",
		Secret:        "s3cr3t",
		Status:        entity.StatusPending,
		Total:         "23.00",
		Currency:      "EUR",
		Locale:        "en-GB",
		EventSlug:     "democon",
		EventName:     "DemoCon 2026",
		OrganizerSlug: "democorp",
		OrganizerName: "Demo Corp",
		Lines: []entity.OrderLine{
			{ArticleNumber: "T1", Description: "Standard ticket", Quantity: 2,
				GrossAmount: "10.00", NetAmount: "8.40", TaxRate: "19.00", TaxAmount: "1.60"},
			{ArticleNumber: "T2", Description: "Parking pass", Quantity: 1,
				GrossAmount: "3.00", NetAmount: "2.52", TaxRate: "19.00", TaxAmount: "0.48"},
		},
	}
}

func newTestPayments(conf *config.Config) (*Payments, *fakeDatabase, *fakeSessions) {
	payments := NewPayments(conf)
	database := newFakeDatabase()
	sessions := newFakeSessions()
	payments.SetDatabase(database)
	payments.SetSessionStore(sessions)
	payments.SetLogger(NewLogger("test", false, nil))
	return payments, database, sessions
}

// signedPayload builds a fingerprinted callback payload the way the gateway
// would send it, from alternating key/value pairs.
func signedPayload(signer *Signer, pairs ...string) entity.CallbackPayload {
	params := entity.NewParameterSet()
	for i := 0; i+1 < len(pairs); i += 2 {
		params.Set(pairs[i], pairs[i+1])
	}
	signer.Sign(params)

	payload := make(entity.CallbackPayload)
	for key, value := range params.Fields() {
		payload[key] = value
	}
	payload[entity.FieldFingerprint] = params.Get(fingerprintKey)
	payload[entity.FieldFingerprintOrder] = params.Get(fingerprintOrderKey)
	return payload
}
