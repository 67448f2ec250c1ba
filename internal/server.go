package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"qpay/config"
	"qpay/entity"
	"qpay/services"
)

const (
	paymentParams  = "/pay/:order/:hash"
	confirmPayment = "/confirm/:order/:hash"
	returnPayment  = "/return/:order/:hash"
	refundPayment  = "/refund/:order"
)

const sessionCookie = "qpay_session"

const confirmAckOK = `<QPAY-CONFIRMATION-RESPONSE result="OK" />`

func confirmAckNOK(message string) string {
	return fmt.Sprintf(`<QPAY-CONFIRMATION-RESPONSE result="NOK" message=%q />`, message)
}

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(paymentParams, s.paymentParams)
	router.POST(confirmPayment, s.confirmPayment)
	router.POST(returnPayment, s.returnPayment)
	router.POST(refundPayment, s.refundPayment)
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

// paymentParams hands the host the signed redirect parameters for an order,
// to be rendered as an auto-submitting form posting to the payment page.
func (s *Server) paymentParams(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	method := r.URL.Query().Get("method")
	if method == "" {
		s.logger.Warn(fmt.Sprintf("[%s] payment params: missing method", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	params, err := s.payments.PaymentParams(ctx, s.sessionID(w, r), ps.ByName("order"), ps.ByName("hash"), method)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrOrderNotFound):
			w.WriteHeader(http.StatusNotFound)
		case errors.Is(err, entity.ErrNotConfigured):
			s.logger.Error(fmt.Sprintf("[%s] payment params", reqID), err)
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			s.logger.Warn(fmt.Sprintf("[%s] payment params: %v", reqID, err))
			w.WriteHeader(http.StatusBadRequest)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"url":        s.conf.Gateway.PageURL,
		"parameters": params.Fields(),
	})
}

// confirmPayment is the server-to-server notification endpoint. It answers
// with the fixed XML acknowledgment the gateway expects.
func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] confirm: parse form: %v", reqID, err))
		s.writeXML(w, http.StatusBadRequest, confirmAckNOK("Malformed request."))
		return
	}
	payload := entity.PayloadFromValues(r.PostForm)

	err := s.payments.Confirm(ctx, ps.ByName("order"), ps.ByName("hash"), payload)
	switch {
	case err == nil:
		s.writeXML(w, http.StatusOK, confirmAckOK)
	case errors.Is(err, entity.ErrOrderNotFound):
		s.writeXML(w, http.StatusNotFound, confirmAckNOK("Unknown order."))
	case errors.Is(err, entity.ErrInvalidFingerprint):
		s.writeXML(w, http.StatusForbidden, confirmAckNOK("Invalid fingerprint."))
	default:
		s.logger.Error(fmt.Sprintf("[%s] confirm order %s", reqID, ps.ByName("order")), err)
		s.writeXML(w, http.StatusInternalServerError, confirmAckNOK("Internal error."))
	}
}

// returnPayment is the browser-return endpoint: the customer arrives here
// redirected by the gateway and leaves with a redirect to the host shop.
func (s *Server) returnPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	if err := r.ParseForm(); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] return: parse form: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	payload := entity.PayloadFromValues(r.PostForm)

	target, err := s.payments.Return(ctx, s.sessionID(w, r), ps.ByName("order"), ps.ByName("hash"), payload)
	switch {
	case err == nil:
		http.Redirect(w, r, target, http.StatusFound)
	case errors.Is(err, entity.ErrOrderNotFound):
		s.writeXML(w, http.StatusNotFound, confirmAckNOK("Unknown order."))
	default:
		s.logger.Error(fmt.Sprintf("[%s] return order %s", reqID, ps.ByName("order")), err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// refundPayment triggers a refund; called by the host's control panel.
func (s *Server) refundPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	var body struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] refund: decode request body: %v", reqID, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orderCode := ps.ByName("order")
	s.logger.Info(fmt.Sprintf("[%s] processing request: refund order %s, amount %s", reqID, orderCode, body.Amount))

	err := s.payments.Refund(ctx, orderCode, body.Amount)
	var gatewayErr *entity.GatewayError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, entity.ErrOrderNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.As(err, &gatewayErr):
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "rejected",
			"message": gatewayErr.Message,
		})
	case errors.Is(err, entity.ErrGatewayUnreachable):
		s.logger.Error(fmt.Sprintf("[%s] refund order %s", reqID, orderCode), err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "unreachable",
			"message": "The payment gateway could not be reached. Please try again later.",
		})
	default:
		s.logger.Error(fmt.Sprintf("[%s] refund order %s", reqID, orderCode), err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// sessionID reads the session cookie, creating a new session when absent.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

func (s *Server) writeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Error("write response", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("write response", err)
	}
}
