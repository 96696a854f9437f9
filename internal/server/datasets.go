package server

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/wesm/listenview/internal/history"
	"github.com/wesm/listenview/internal/metrics"
	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/store"
)

// maxMemoryForm is the in-memory share of a multipart form;
// larger parts spill to temp files.
const maxMemoryForm = 32 << 20

type uploadRequest struct {
	payloads [][]byte
	window   history.Range
}

// parseUploadRequest reads the export files and preview window
// from a multipart upload. On failure it returns the status and
// message to report.
func parseUploadRequest(
	r *http.Request,
) (*uploadRequest, int, string) {
	if err := r.ParseMultipartForm(maxMemoryForm); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, http.StatusRequestEntityTooLarge,
				"upload too large"
		}
		return nil, http.StatusBadRequest,
			"expected multipart form data"
	}

	start := r.FormValue("start_date")
	end := r.FormValue("end_date")
	if start == "" || end == "" {
		return nil, http.StatusBadRequest,
			"start_date and end_date required"
	}
	window, err := history.ParseRange(start, end)
	if err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, http.StatusBadRequest,
			"at least one file required"
	}
	payloads := make([][]byte, 0, len(headers))
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			log.Printf("upload: reading %s: %v", h.Filename, err)
			return nil, http.StatusBadRequest,
				"failed to read " + h.Filename
		}
		payloads = append(payloads, data)
	}
	return &uploadRequest{payloads: payloads, window: window}, 0, ""
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleUpload(
	w http.ResponseWriter, r *http.Request,
) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	req, status, msg := parseUploadRequest(r)
	if req == nil {
		writeError(w, status, msg)
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, err := s.svc.Upload(r.Context(), req.payloads, req.window)
	if err != nil {
		if errors.Is(err, parser.ErrMalformed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if handleContextError(w, err) {
			return
		}
		log.Printf("upload: %v", err)
		writeError(w, http.StatusInternalServerError,
			"failed to store dataset")
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleMetrics(
	w http.ResponseWriter, r *http.Request,
) {
	q := r.URL.Query()
	window, err := history.ParseRange(
		q.Get("start_date"), q.Get("end_date"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bundle, err := s.svc.QueryMetrics(
		r.Context(), r.PathValue("dataset_id"), window,
	)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, bundle)
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case errors.Is(err, metrics.ErrNoData):
		writeError(w, http.StatusOK, msgNoData)
	case handleContextError(w, err):
	default:
		log.Printf("metrics error: %v", err)
		writeError(w, http.StatusInternalServerError,
			"internal server error")
	}
}

func (s *Server) handleGetDataset(
	w http.ResponseWriter, r *http.Request,
) {
	info, err := s.svc.Info(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case handleContextError(w, err):
	default:
		log.Printf("dataset info error: %v", err)
		writeError(w, http.StatusInternalServerError,
			"internal server error")
	}
}

func (s *Server) handleDeleteDataset(
	w http.ResponseWriter, r *http.Request,
) {
	err := s.svc.Evict(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
	case handleContextError(w, err):
	default:
		log.Printf("dataset evict error: %v", err)
		writeError(w, http.StatusInternalServerError,
			"internal server error")
	}
}
