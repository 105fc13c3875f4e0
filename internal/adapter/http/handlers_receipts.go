package adapthttp

import (
	"errors"
	"net/http"
	"strconv"

	"fuellog/internal/domain"
)

// maxReceiptBody allows a base64 image of MaxReceiptImageBytes plus the JSON
// envelope.
const maxReceiptBody = domain.MaxReceiptImageBytes*4/3 + 4096

func (s *Server) handleReceiptExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user := userFromContext(r)
	if !s.receiptLimiter.Allow(strconv.FormatInt(user.ID, 10)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, errors.New("too many receipt extractions, try again shortly"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBody)
	var body struct {
		PhotoDataURI string `json:"photoDataUri"`
	}
	if err := parseJSON(r, &body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("receipt image too large"))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	fields, err := s.receipts.Extract(r.Context(), user.ID, body.PhotoDataURI)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}
