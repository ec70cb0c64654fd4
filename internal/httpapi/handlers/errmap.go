package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelierhq/commission-platform/internal/common"
	"github.com/atelierhq/commission-platform/internal/httpapi/middleware"
	"github.com/atelierhq/commission-platform/internal/revision"
)

// failErr maps the domain error taxonomy onto the response envelope. Storage
// and unknown errors keep their detail in the log only; the user just gets
// "try again".
func failErr(c *gin.Context, err error) {
	var ve *revision.ValidationError
	if errors.As(err, &ve) {
		common.Fail(c, http.StatusBadRequest, 10010, ve.Field+" "+ve.Reason)
		return
	}
	var te *revision.InvalidTransitionError
	if errors.As(err, &te) {
		common.Fail(c, http.StatusConflict, 10030, "this change is not allowed from the current status")
		return
	}
	switch {
	case errors.Is(err, revision.ErrNotFound):
		common.Fail(c, http.StatusNotFound, 40401, "not found")
	case errors.Is(err, revision.ErrInvalidState):
		common.Fail(c, http.StatusConflict, 10040, "that step is not available right now")
	case errors.Is(err, revision.ErrConflict):
		common.Fail(c, http.StatusConflict, 10050, "someone else changed this revision, please retry")
	default:
		var se *revision.StorageError
		if errors.As(err, &se) {
			log.Printf("[storage] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			common.Fail(c, http.StatusInternalServerError, 50002, "could not store the file, please try again")
			return
		}
		log.Printf("[internal] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error, please try again")
	}
}

func actorIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.ActorIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
