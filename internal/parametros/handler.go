package parametros

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auditoria360/auditoria360/internal/platform/httpx"
)

// ParameterService is the controller contract the HTTP layer depends on.
type ParameterService interface {
	List(ctx context.Context, kind Kind) ([]Record, error)
	Get(ctx context.Context, kind Kind, id string) (Record, error)
	Create(ctx context.Context, kind Kind, req CreateRequest) (Record, error)
	Update(ctx context.Context, kind Kind, id string, req UpdateRequest) (Record, error)
	Delete(ctx context.Context, kind Kind, id string) (DeleteResult, error)
	Effective(ctx context.Context, kind Kind, day time.Time) ([]Record, error)
	EffectiveAll(ctx context.Context, day time.Time) (EffectiveSet, error)
}

// Handler exposes the parameter tables over JSON.
type Handler struct {
	logger  *slog.Logger
	service ParameterService
	today   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service ParameterService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, today: time.Now}
}

// MountRoutes registers the routes relative to /parametros.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vigentes", h.effectiveAll)
	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.kindContext)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/vigente", h.effective)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type kindKey struct{}

func (h *Handler) kindContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), kindKey{}, kind)))
	})
}

func kindFrom(r *http.Request) Kind {
	kind, _ := r.Context().Value(kindKey{}).(Kind)
	return kind
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	records, err := h.service.List(r.Context(), kind)
	if err != nil {
		h.fail(w, r, "list parameters failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	rec, err := h.service.Get(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get parameter failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, NewValidationError("body", err.Error()))
		return
	}
	rec, err := h.service.Create(r.Context(), kind, req)
	if err != nil {
		h.fail(w, r, "create parameter failed", err)
		return
	}
	w.Header().Set("Location", "/parametros/"+string(rec.Kind)+"/"+rec.ID)
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	id := chi.URLParam(r, "id")
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, NewValidationError("body", err.Error()))
		return
	}
	if req.Version == nil {
		version, err := ifMatchVersion(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		req.Version = version
	}
	rec, err := h.service.Update(r.Context(), kind, id, req)
	if err != nil {
		h.fail(w, r, "update parameter failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	result, err := h.service.Delete(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "delete parameter failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	kind := kindFrom(r)
	day, err := h.queryDate(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.Effective(r.Context(), kind, day)
	if err != nil {
		h.fail(w, r, "effective parameters failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) effectiveAll(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDate(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	set, err := h.service.EffectiveAll(r.Context(), day)
	if err != nil {
		h.fail(w, r, "effective parameters failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

// queryDate reads ?data=YYYY-MM-DD, defaulting to today in UTC.
func (h *Handler) queryDate(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("data")
	if raw == "" {
		return truncateDay(h.today().UTC()), nil
	}
	day, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, NewValidationError("data", err.Error())
	}
	return day, nil
}

// ifMatchVersion reads an expected version from If-Match; ETag quotes and a
// weak prefix are tolerated.
func ifMatchVersion(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || version < 1 {
		return nil, NewValidationError("If-Match", "must be a positive record version")
	}
	return &version, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := httpx.StatusFor(err)
	attrs := []any{
		slog.String("kind", string(kindFrom(r))),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(msg, attrs...)
	case errors.Is(err, ErrConflict):
		h.logger.Warn(msg, attrs...)
	default:
		h.logger.Debug(msg, attrs...)
	}
	httpx.RespondError(w, err)
}
