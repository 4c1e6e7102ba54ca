package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"product-lens/internal/app"
	"product-lens/internal/metrics"
	"product-lens/internal/transport/http/response"
)

// ClassifyHandler serves POST /classify.
type ClassifyHandler struct {
	service       *app.ClassifyService
	metrics       *metrics.Metrics
	timeout       time.Duration
	maxImageBytes int64
}

func NewClassifyHandler(service *app.ClassifyService, m *metrics.Metrics, timeout time.Duration, maxImageBytes int64) *ClassifyHandler {
	return &ClassifyHandler{
		service:       service,
		metrics:       m,
		timeout:       timeout,
		maxImageBytes: maxImageBytes,
	}
}

// Classify accepts a multipart form with an "image" file and answers with the
// product id of the best matching reference product.
func (h *ClassifyHandler) Classify(c *gin.Context) {
	started := time.Now()
	outcome := metrics.OutcomeInternal
	defer func() {
		h.metrics.ObserveRequest(outcome, time.Since(started).Seconds())
	}()

	if h.maxImageBytes > 0 {
		// Room for the multipart envelope on top of the image itself.
		limit := h.maxImageBytes + 1<<20
		if c.Request.ContentLength > limit {
			outcome = metrics.OutcomeClientError
			response.Error(c, http.StatusBadRequest, response.MsgImageTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	file, err := c.FormFile("image")
	if err != nil {
		outcome = metrics.OutcomeClientError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, response.MsgImageTooLarge)
			return
		}
		response.Error(c, http.StatusBadRequest, response.MsgNoImage)
		return
	}
	if h.maxImageBytes > 0 && file.Size > h.maxImageBytes {
		outcome = metrics.OutcomeClientError
		response.Error(c, http.StatusBadRequest, response.MsgImageTooLarge)
		return
	}

	f, err := file.Open()
	if err != nil {
		outcome = metrics.OutcomeClientError
		response.Error(c, http.StatusBadRequest, response.MsgInvalidImage)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		outcome = metrics.OutcomeClientError
		response.Error(c, http.StatusBadRequest, response.MsgInvalidImage)
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.service.Classify(ctx, app.ClassifyInput{Image: data})
	if err != nil {
		status, message, errOutcome := classifyError(err)
		outcome = errOutcome
		if status >= http.StatusInternalServerError {
			log.Printf("classify image failed: %v", err)
		}
		response.Error(c, status, message)
		return
	}
	if result.Cached {
		h.metrics.ObserveCacheHit()
	}

	if !result.Found {
		outcome = metrics.OutcomeNotFound
		response.Result(c, response.ProductNotFound)
		return
	}
	outcome = metrics.OutcomeFound
	response.Result(c, result.ProductID)
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, app.ErrImageTooLarge):
		return http.StatusBadRequest, response.MsgImageTooLarge, metrics.OutcomeClientError
	case errors.Is(err, app.ErrInvalidImage):
		return http.StatusBadRequest, response.MsgInvalidImage, metrics.OutcomeClientError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, response.MsgTimeout, metrics.OutcomeTimeout
	case errors.Is(err, app.ErrStoreImage):
		return http.StatusInternalServerError, response.MsgStoreImage, metrics.OutcomeInternal
	case errors.Is(err, app.ErrRemoteUpload):
		return http.StatusBadGateway, response.MsgUploadFailed, metrics.OutcomeUpstream
	case errors.Is(err, app.ErrRemoteProcessing):
		return http.StatusBadGateway, response.MsgProcessingFailed, metrics.OutcomeUpstream
	case errors.Is(err, app.ErrModel):
		return http.StatusBadGateway, response.MsgModelFailed, metrics.OutcomeUpstream
	default:
		return http.StatusInternalServerError, response.MsgInternal, metrics.OutcomeInternal
	}
}
