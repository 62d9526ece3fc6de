package response

import (
	"encoding/json"
	"net/http"

	"github.com/arw/arw-api/domain/apperror"
	"github.com/arw/arw-api/infrastructure/service/logger"
)

type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, Envelope{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

// AppError writes the error envelope for err with the status its code maps to.
// Errors outside the catalog are reported as internal errors.
func AppError(w http.ResponseWriter, r *http.Request, err error) {
	WriteJSON(w, apperror.HTTPStatus(err), apperror.NewErrorResponse(err, r.URL.Path, logger.CorrelationID(r.Context())))
}

// SetCookies adds every cookie as its own Set-Cookie header. Call before writing the body.
func SetCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
