package handler

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/telemetry/logger"
)

// StreamTokenHeader carries the secret as an alternative to ?token=.
const StreamTokenHeader = "X-Stream-Token"

// Stream handles GET /v1/stream. The secret is consumed before the
// upstream is opened, so a failed open still spends it.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	secret := r.URL.Query().Get("token")
	if secret == "" {
		secret = r.Header.Get(StreamTokenHeader)
	}

	claim, err := h.validator.ValidateAndConsume(r.Context(), secret, h.clientInfo(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	task, err := h.engine.Open(r.Context(), claim)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	meta := task.Meta()
	hdr := w.Header()
	hdr.Set("Content-Type", meta.ContentType)
	hdr.Set("Cache-Control", "no-store")
	hdr.Set("X-Content-Type-Options", "nosniff")
	if meta.Size >= 0 {
		hdr.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	if meta.Filename != "" {
		hdr.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Filename}))
	}
	w.WriteHeader(http.StatusOK)

	task.Run(&flushWriter{w: w, rc: http.NewResponseController(w)})
	res := task.Wait()

	if res.Err == nil {
		return
	}
	if errors.Is(res.Err, domain.ErrTransferCancelled) {
		logger.L(r.Context()).Info("stream cancelled", "token_id", claim.TokenID, "bytes", res.Bytes)
		return
	}
	// Headers are gone; aborting is the only way to tell the client the
	// body is incomplete.
	logger.L(r.Context()).Warn("stream aborted", "token_id", claim.TokenID, "bytes", res.Bytes, "error", res.Err)
	panic(http.ErrAbortHandler)
}

// flushWriter pushes each chunk to the client as soon as it is written.
type flushWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if ferr := f.rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
		return n, ferr
	}
	return n, nil
}

