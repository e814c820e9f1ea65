package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error
// response as the spec's {error, message, detail} envelope.
type HTTPError struct {
	Status  int
	Kind    string
	Message string
	Detail  map[string]any
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, kind, message string, detail map[string]any, err error) *HTTPError {
	return &HTTPError{Status: status, Kind: kind, Message: message, Detail: detail, Err: err}
}

// codeToKind maps a domain error code to the stable kind string the
// HTTP surface exposes, plus the status it maps to.
var codeToKind = map[string]struct {
	status int
	kind   string
}{
	domain.CodeBlobNotFound:       {http.StatusNotFound, "BlobNotFound"},
	domain.CodeBlobAccessDenied:   {http.StatusForbidden, "BlobAccessDenied"},
	domain.CodeBlobUnavailable:    {http.StatusBadGateway, "BlobUnavailable"},
	domain.CodeInvalidKeyFormat:   {http.StatusBadRequest, "InvalidKeyFormat"},
	domain.CodeCatalogUnavailable: {http.StatusBadGateway, "CatalogUnavailable"},
	domain.CodeRecordNotFound:     {http.StatusNotFound, "RecordNotFound"},
	domain.CodeValidationFailure:  {http.StatusBadRequest, "ValidationFailure"},
	domain.CodeExtractionFailure:  {http.StatusUnprocessableEntity, "ExtractionFailure"},
	domain.CodeEmbeddingFailure:   {http.StatusBadGateway, "EmbeddingFailure"},
	domain.CodeVectorUpsertFail:   {http.StatusBadGateway, "VectorUpsertFailure"},
	domain.CodeVectorQueryFail:    {http.StatusBadGateway, "VectorQueryFailure"},
	domain.CodeLLMFailure:         {http.StatusBadGateway, "LLMFailure"},
}

// mapServiceError converts a domain error into the HTTP envelope the
// spec requires. Unrecognized errors become a generic 500.
func mapServiceError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if mapped, ok := codeToKind[appErr.Code]; ok {
			return NewHTTPError(mapped.status, mapped.kind, appErr.Message, nil, err)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "InternalError", "something went wrong", nil, err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return mapServiceError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
