package response

import "github.com/gin-gonic/gin"

const (
	MsgNoImage          = "No image file provided"
	MsgImageTooLarge    = "Image file too large"
	MsgInvalidImage     = "Invalid image file"
	MsgStoreImage       = "Failed to store image"
	MsgUploadFailed     = "Failed to upload image"
	MsgProcessingFailed = "Image processing failed"
	MsgTimeout          = "Classification timed out"
	MsgModelFailed      = "Model request failed"
	MsgInternal         = "Internal server error"

	ProductNotFound = "Product Not Found."
)

type ResultResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func Result(c *gin.Context, value string) {
	c.JSON(200, ResultResponse{Response: value})
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorResponse{Error: message})
}
