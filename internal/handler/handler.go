package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iurnickita/shopsync/internal/auth"
	"github.com/iurnickita/shopsync/internal/handler/config"
	"github.com/iurnickita/shopsync/internal/logger"
	"github.com/iurnickita/shopsync/internal/service"
	"github.com/iurnickita/shopsync/internal/service/shopifyclient"
)

// лимит тела запроса
const maxBodySize = 8 << 20

// Serve блокирует до отмены ctx, затем мягко останавливает сервер.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("http server started", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	auth     auth.Auth
	service  service.Service
	validate *validator.Validate
	zaplog   *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		auth:     auth,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		zaplog:   zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	// вебхуки платформы
	mux.HandleFunc("POST /shopify-order-create-webhook", logger.RequestLogMdlw(h.auth.WebhookMiddleware(h.PostOrderWebhook), h.zaplog))
	mux.HandleFunc("POST /shopify/webhooks/create-order", logger.RequestLogMdlw(h.auth.WebhookMiddleware(h.PostOrderWebhook), h.zaplog))
	// API магазина
	mux.HandleFunc("POST /shopify/product", logger.RequestLogMdlw(h.auth.Middleware(h.PostProduct), h.zaplog))
	mux.HandleFunc("POST /shopify/products/sync", logger.RequestLogMdlw(h.auth.Middleware(h.PostProductsSync), h.zaplog))
	mux.HandleFunc("POST /shopify/orders/sync", logger.RequestLogMdlw(h.auth.Middleware(h.PostOrdersSync), h.zaplog))
	mux.HandleFunc("POST /shopify/product/image/replace", logger.RequestLogMdlw(h.auth.Middleware(h.PostImageReplace), h.zaplog))
	mux.HandleFunc("POST /shopify/collections", logger.RequestLogMdlw(h.auth.Middleware(h.PostCollection), h.zaplog))
	mux.HandleFunc("PUT /shopify/collections/{id}/products", logger.RequestLogMdlw(h.auth.Middleware(h.PutCollectionProducts), h.zaplog))
	mux.HandleFunc("DELETE /shopify/collections/{id}", logger.RequestLogMdlw(h.auth.Middleware(h.DeleteCollection), h.zaplog))
	mux.HandleFunc("POST /shopify/product/discounts", logger.RequestLogMdlw(h.auth.Middleware(h.PostDiscounts), h.zaplog))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (h *handler) PostOrderWebhook(w http.ResponseWriter, r *http.Request) {
	var order shopifyclient.OrderPayload
	if err := decode(r, &order); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	storeCode := r.Header.Get(auth.HeaderStoreCodeKey)

	res, err := h.service.HandleOrderCreated(r.Context(), storeCode, order)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyProcessed):
			// платформа не должна повторять доставку
			writeJSON(w, http.StatusOK, messageResponse{Message: "order already processed"})
		case errors.Is(err, service.ErrWebhookDisabled):
			writeJSON(w, http.StatusOK, messageResponse{Message: "order webhook is disabled"})
		default:
			h.serviceError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) PostProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.bind(w, r, &req) {
		return
	}
	product, err := req.payload()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.PushProduct(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), product)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *handler) PostProductsSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SyncAllProducts(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) PostOrdersSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SyncOrders(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) PostImageReplace(w http.ResponseWriter, r *http.Request) {
	var req imageReplaceRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.service.ReplaceProductImages(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), req.batch())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) PostCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.service.UpsertCollection(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), req.input())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *handler) PutCollectionProducts(w http.ResponseWriter, r *http.Request) {
	collectionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || collectionID <= 0 {
		http.Error(w, "invalid collection id", http.StatusBadRequest)
		return
	}
	var req membershipRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.service.ReconcileCollection(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), collectionID, rawIDStrings(req.ProductIDs))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	collectionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || collectionID <= 0 {
		http.Error(w, "invalid collection id", http.StatusBadRequest)
		return
	}

	err = h.service.DeleteCollection(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), collectionID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "collection deleted"})
}

func (h *handler) PostDiscounts(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if !h.bind(w, r, &req) {
		return
	}
	items, err := req.items()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.service.ApplyDiscounts(r.Context(), r.Header.Get(auth.HeaderStoreCodeKey), items)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type messageResponse struct {
	Message string `json:"message"`
}

// serviceError - код ответа по ошибке сервиса
func (h *handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInsufficientData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrUnknownStore):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, shopifyclient.ErrNonRetryable),
		errors.Is(err, shopifyclient.ErrRetriesExhausted),
		errors.Is(err, shopifyclient.ErrCursorLoop):
		h.zaplog.Warn("platform request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// bind разбирает и проверяет тело; при ошибке ответ уже записан.
func (h *handler) bind(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := decode(r, req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return false
	}
	return true
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}
