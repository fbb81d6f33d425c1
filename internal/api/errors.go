package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/pkg/response"
)

var kindStatus = map[domain.ErrorKind]int{
	domain.KindInvalidArgument:    http.StatusBadRequest,
	domain.KindNotAuthorized:      http.StatusForbidden,
	domain.KindNotFound:           http.StatusNotFound,
	domain.KindInvalidState:       http.StatusConflict,
	domain.KindConflict:           http.StatusPreconditionFailed,
	domain.KindLimitExceeded:      http.StatusRequestEntityTooLarge,
	domain.KindInvariantViolation: http.StatusUnprocessableEntity,
	domain.KindUnavailable:        http.StatusServiceUnavailable,
	domain.KindInternal:           http.StatusInternalServerError,
}

// StatusOf maps an engine error kind to its HTTP status.
func StatusOf(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError sends err as a JSON error envelope. Unclassified errors are
// logged and reported without their message.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusOf(kind)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	if kind == domain.KindInternal {
		response.InternalError(w, "internal error")
		return
	}
	response.Error(w, status, string(kind), err.Error())
}
