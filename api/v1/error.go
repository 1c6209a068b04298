package api_v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/mohitkumar/pollster/dedup"
	"github.com/mohitkumar/pollster/metadata"
	"github.com/mohitkumar/pollster/persistence"
	"github.com/mohitkumar/pollster/polling"
	"github.com/mohitkumar/pollster/service"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// TriggerError carries an operation failure over grpc with a localized
// message detail, the same way for every error kind.
type TriggerError struct {
	Code    codes.Code
	Message string
}

func (e TriggerError) GRPCStatus() *status.Status {
	st := status.New(e.Code, e.Message)
	d := &errdetails.LocalizedMessage{
		Locale:  "en-US",
		Message: e.Message,
	}
	std, err := st.WithDetails(d)
	if err != nil {
		return st
	}
	return std
}

func (e TriggerError) Error() string {
	return e.GRPCStatus().Err().Error()
}

func Code(err error) codes.Code {
	var fetchErr polling.FetchError
	var malformed dedup.MalformedItemError
	var storageErr persistence.StorageLayerError
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, metadata.ErrTriggerNotFound):
		return codes.NotFound
	case errors.Is(err, polling.ErrLeaseHeld):
		return codes.Aborted
	case errors.Is(err, polling.ErrModeMismatch), errors.Is(err, service.ErrWrongTriggerType):
		return codes.FailedPrecondition
	case errors.As(err, &malformed):
		return codes.InvalidArgument
	case errors.As(err, &fetchErr):
		return codes.Unavailable
	case errors.As(err, &storageErr), errors.Is(err, persistence.ErrInvalidKey), errors.Is(err, persistence.ErrInvalidScope):
		return codes.Internal
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Unknown
}

// ToGRPC converts a service error into a status error. Errors that already
// carry a status pass through.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return TriggerError{Code: Code(err), Message: err.Error()}
}

func HTTPStatus(err error) int {
	switch Code(err) {
	case codes.OK:
		return http.StatusOK
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.InvalidArgument:
		return http.StatusUnprocessableEntity
	case codes.Unavailable:
		return http.StatusBadGateway
	case codes.Internal:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
