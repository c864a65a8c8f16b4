package server

import (
	"net/http"

	apperrors "github.com/tokenlens/tokenlens/internal/errors"
)

// HandleError writes any error through the standard envelope responder.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
