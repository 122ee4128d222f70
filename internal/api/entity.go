package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stockroom/m/internal/catalog"
	"stockroom/m/internal/tabular"
)

type tableExporter interface {
	Export(ctx context.Context) (tabular.Table, error)
}

type tableImporter interface {
	Import(ctx context.Context, rows []tabular.Row) (catalog.ImportResult, error)
}

// entityStore is the contract shared by brands, categories, suppliers and
// products.
type entityStore[T any] interface {
	tableExporter
	tableImporter
	Label() string
	New() T
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, item *T) (int64, error)
	Update(ctx context.Context, id int64, item *T) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
}

type entityRoutes[T any] struct {
	h     *Handler
	name  string
	store entityStore[T]
}

// mountEntity registers the CRUD, export and import routes of one entity under
// /name. extra routes are added before the /{id} routes.
func mountEntity[T any](r chi.Router, h *Handler, name string, store entityStore[T], extra ...func(chi.Router)) {
	e := &entityRoutes[T]{h: h, name: name, store: store}
	r.Route("/"+name, func(r chi.Router) {
		r.Get("/", e.list)
		r.Post("/", e.create)
		r.Get("/export", h.exportTable(name, store))
		r.Post("/import", h.importTable(store))
		r.With(h.requireAdmin).Delete("/delete-all", e.deleteAll)
		for _, fn := range extra {
			fn(r)
		}
		r.Get("/{id}", e.get)
		r.Put("/{id}", e.update)
		r.Delete("/{id}", e.delete)
	})
}

func (e *entityRoutes[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := e.store.List(r.Context())
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (e *entityRoutes[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	item, err := e.store.Get(r.Context(), id)
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (e *entityRoutes[T]) create(w http.ResponseWriter, r *http.Request) {
	item := e.store.New()
	if err := decodeJSON(r, &item); err != nil {
		e.h.writeError(w, r, err)
		return
	}
	id, err := e.store.Create(r.Context(), &item)
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": e.store.Label() + " created successfully",
	})
}

func (e *entityRoutes[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	item := e.store.New()
	if err := decodeJSON(r, &item); err != nil {
		e.h.writeError(w, r, err)
		return
	}
	if err := e.store.Update(r.Context(), id, &item); err != nil {
		e.h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, e.store.Label()+" updated successfully")
}

func (e *entityRoutes[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	if err := e.store.Delete(r.Context(), id); err != nil {
		e.h.writeError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, e.store.Label()+" deleted successfully")
}

func (e *entityRoutes[T]) deleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := e.store.DeleteAll(r.Context())
	if err != nil {
		e.h.writeError(w, r, err)
		return
	}
	e.h.log.Warn("deleted all rows", zap.String("entity", e.name), zap.Int64("rows", n))
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted": n,
		"message": fmt.Sprintf("All %s deleted successfully", e.name),
	})
}

// exportTable streams src as CSV or XLSX depending on ?format=.
func (h *Handler) exportTable(name string, src tableExporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := tabular.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		table, err := src.Export(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filename := fmt.Sprintf("%s-%s%s", name, h.now().Format("20060102"), format.Extension())
		attachment(w, format.ContentType(), filename)
		if err := tabular.Write(w, format, table); err != nil {
			h.log.Error("export failed", zap.String("entity", name), zap.Error(err))
		}
	}
}

type importResponse struct {
	Message string `json:"message"`
	catalog.ImportResult
}

// importTable reads the multipart "file" field. The format comes from
// ?format= or, failing that, the file extension.
func (h *Handler) importTable(dst tableImporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes())
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeError(w, r, err)
				return
			}
			respondError(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer file.Close()

		format := tabular.FormatFromFilename(header.Filename)
		if q := strings.TrimSpace(r.URL.Query().Get("format")); q != "" {
			if format, err = tabular.ParseFormat(q); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		rows, err := tabular.Read(file, format)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := dst.Import(r.Context(), rows)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, importResponse{Message: "Import completed", ImportResult: result})
	}
}
