package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
)

type (
	// ApiResponse is the envelope of every JSON response.
	ApiResponse struct {
		StatusCode int               `json:"statusCode"`
		Data       interface{}       `json:"data"`
		Message    string            `json:"message"`
		Success    bool              `json:"success"`
		Errors     map[string]string `json:"errors,omitempty"`
	}

	// ListingResponse is one page of reports.
	ListingResponse[T any] struct {
		Data         []T   `json:"data"`
		TotalPages   int64 `json:"totalPages"`
		CurrentPage  int64 `json:"currentPage"`
		TotalReports int64 `json:"totalReports"`
	}

	// DraftListingResponse holds the caller's drafts and, at the same index, when each one expires.
	DraftListingResponse[T any] struct {
		Data        []T         `json:"data"`
		ExpiryDates []time.Time `json:"expiryDates"`
	}
)

func newResponse(code int, data interface{}, message string) ApiResponse {
	return ApiResponse{StatusCode: code, Data: data, Message: message, Success: code < http.StatusBadRequest}
}

func newErrorResponse(code int, message string, fields map[string]string) ApiResponse {
	return ApiResponse{StatusCode: code, Message: message, Errors: fields}
}

func respond(ctx echo.Context, code int, data interface{}, message string) error {
	return ctx.JSON(code, newResponse(code, data, message))
}

func newListingResponse[T any](res core.PageResult[T]) ListingResponse[T] {
	return ListingResponse[T]{
		Data:         res.Items,
		TotalPages:   res.TotalPages,
		CurrentPage:  res.Page,
		TotalReports: res.Total,
	}
}

func newDraftListingResponse[T report.Record](l draft.Listing[T]) DraftListingResponse[T] {
	return DraftListingResponse[T]{Data: l.Drafts, ExpiryDates: l.ExpiryDates}
}
