package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/mastermeng/fabricrest/internal/dispatch"
	"github.com/mastermeng/fabricrest/internal/ledger"
	"github.com/mastermeng/fabricrest/internal/relay"
	"github.com/pkg/errors"
)

// Error classes carried in the envelope's error field.
const (
	ValidationError = "ValidationError"
	NotFoundError   = "NotFoundError"
	IdentityError   = "IdentityError"
	LedgerError     = "LedgerError"
)

// Response is the envelope of every chaincode and ledger route. Exactly
// one of Result and Error is set.
type Response struct {
	Result    interface{} `json:"result"`
	Error     *string     `json:"error"`
	ErrorData *string     `json:"errorData"`
}

func classify(err error) (int, string) {
	switch errors.Cause(err) {
	case dispatch.ErrMalformedArgs,
		dispatch.ErrArgsNotArray,
		dispatch.ErrMalformedTransient,
		dispatch.ErrTooFewArgs,
		dispatch.ErrTransientRequired,
		dispatch.ErrUnknownSystemFunction,
		dispatch.ErrInvalidSystemArg,
		relay.ErrMissingField,
		ledger.ErrUnknownOrg:
		return http.StatusBadRequest, ValidationError
	case relay.ErrNotFound:
		return http.StatusNotFound, NotFoundError
	case relay.ErrRegistrationFailed, ledger.ErrIdentityNotFound:
		return http.StatusInternalServerError, IdentityError
	default:
		return http.StatusInternalServerError, LedgerError
	}
}

func (s *Server) success(ctx *gin.Context, result interface{}) {
	ctx.JSON(http.StatusOK, Response{Result: nonNull(result)})
}

// nonNull keeps the result side of a success envelope populated. A nil
// slice becomes an empty one; other values that would encode as JSON null
// become the empty string.
func nonNull(result interface{}) interface{} {
	if result == nil {
		return ""
	}
	if raw, ok := result.(json.RawMessage); ok {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return ""
		}
		return result
	}
	switch v := reflect.ValueOf(result); v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
	case reflect.Ptr, reflect.Map, reflect.Interface:
		if v.IsNil() {
			return ""
		}
	}
	return result
}

func (s *Server) failure(ctx *gin.Context, err error) {
	status, class := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorf("%s %s failed: %+v", ctx.Request.Method, ctx.Request.URL.Path, err)
	} else {
		s.logger.Debugf("%s %s rejected: %s", ctx.Request.Method, ctx.Request.URL.Path, err)
	}
	msg := err.Error()
	ctx.JSON(status, Response{Error: &class, ErrorData: &msg})
}
