package api

import (
	"io"
	"net/http"
	"net/url"

	"github.com/samber/oops"

	"github.com/jmcleod/gatehouse/auth"
)

// maxFormBodySize caps the urlencoded request body.
const maxFormBodySize = 64 << 10

// readForm reads the whole body and parses it as
// application/x-www-form-urlencoded regardless of the declared content type.
func readForm(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBodySize))
	if err != nil {
		return nil, oops.Code(auth.CodeValidation).Public("Invalid request body").Wrap(auth.ErrValidation)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, oops.Code(auth.CodeValidation).Public("Invalid request body").Wrap(auth.ErrValidation)
	}
	return values, nil
}
