package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"stockroom/m/internal/backup"
)

func (h *Handler) downloadBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.backup.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer func() {
		if err := snap.Remove(); err != nil {
			h.log.Warn("remove snapshot", zap.String("path", snap.Path), zap.Error(err))
		}
	}()

	f, err := os.Open(snap.Path)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer f.Close()

	attachment(w, "application/octet-stream", snap.Name)
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.log.Error("stream backup", zap.Error(err))
	}
}

// restoreBackup accepts the database either as the multipart "file" field
// or as the raw request body.
func (h *Handler) restoreBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes())

	var upload io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
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
		upload = file
	}

	result, err := h.backup.Restore(r.Context(), upload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("database restored",
		zap.String("method", result.Method),
		zap.Bool("restart_required", result.RestartRequired),
		zap.String("staged_path", result.StagedPath),
	)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) exportWorkbooks(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := backup.WriteArchive(r.Context(), &buf, []backup.ArchiveEntry{
		{Name: "brands", Source: h.brands},
		{Name: "categories", Source: h.categories},
		{Name: "suppliers", Source: h.suppliers},
		{Name: "products", Source: h.products},
		{Name: "orders", Source: h.orders},
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attachment(w, "application/zip", fmt.Sprintf("inventory-export-%s.zip", h.now().Format("20060102_150405")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
