package internal

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gitee.com/golang-module/dongle"

	"qpay/config"
	"qpay/services"
)

// Session keys written by this service into the host's session store.
const (
	sessionNonceKey       = "qpay_nonce"
	sessionOrderSecretKey = "qpay_order_secret"
	sessionFlashKey       = "qpay_flash"
)

// provider is the identifier recorded on order mutations and audit-log
// entries made by this service.
const provider = "qpay"

// Payments integrates the hosted payment page: it builds and signs redirect
// parameters, verifies and processes gateway callbacks and issues refunds.
// It uses fine-grained locking per order so concurrent delivery of the same
// gateway event serializes while different orders proceed in parallel.
type Payments struct {
	conf       *config.Config
	database   services.Database
	sessions   services.SessionStore
	logger     services.LogHandler
	signer     *Signer
	locks      sync.Map // map[string]*sync.Mutex for per-order locking
	httpClient *http.Client
}

// NewPayments creates the payment service with a configured HTTP client.
// The HTTP client includes timeouts and connection pooling for reliable
// calls to the gateway's management endpoint.
func NewPayments(conf *config.Config) *Payments {
	return &Payments{
		conf:   conf,
		signer: NewSigner(conf.Gateway.Secret),
		locks:  sync.Map{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
	}
}

func (p *Payments) SetDatabase(database services.Database) {
	p.database = database
}

func (p *Payments) SetSessionStore(sessions services.SessionStore) {
	p.sessions = sessions
}

func (p *Payments) SetLogger(logger services.LogHandler) {
	p.logger = logger
	if p.conf.Gateway.CustomerID == "" || p.conf.Gateway.Secret == "" {
		p.logger.Warn("gateway credentials not configured")
	}
}

// lockOrder acquires a lock for one order code so the confirm and return
// endpoints cannot reconcile the same order concurrently. Mutexes are kept
// for the process lifetime: dropping one while a waiter is blocked on it
// would let a third caller mint a fresh mutex and bypass the serialization.
func (p *Payments) lockOrder(code string) *sync.Mutex {
	value, _ := p.locks.LoadOrStore(code, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex
}

func (p *Payments) unlockOrder(_ string, mutex *sync.Mutex) {
	mutex.Unlock()
}

// orderHash is the URL token binding a callback to an order: the hex SHA-1
// digest of the lowercased order secret.
func orderHash(orderSecret string) string {
	return dongle.Encrypt.FromString(strings.ToLower(orderSecret)).BySha1().ToHexString()
}

// Callback URLs of this service, handed to the gateway.

func (p *Payments) returnURL(code, hash string) string {
	return fmt.Sprintf("%s/return/%s/%s", p.conf.Gateway.PublicURL, code, hash)
}

func (p *Payments) confirmURL(code, hash string) string {
	return fmt.Sprintf("%s/confirm/%s/%s", p.conf.Gateway.PublicURL, code, hash)
}

// Browser redirect targets on the host shop.

func (p *Payments) orderPageURL(organizer, event, code, orderSecret string) string {
	return fmt.Sprintf("%s/%s/%s/order/%s/%s/", p.conf.Gateway.ShopURL, organizer, event, code, orderSecret)
}

func (p *Payments) eventPageURL(organizer, event string) string {
	return fmt.Sprintf("%s/%s/%s/", p.conf.Gateway.ShopURL, organizer, event)
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
