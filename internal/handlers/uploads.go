package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/feek13/mini-social-sub003/internal/errors"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/storage"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadImage stores a post image or avatar. kind=avatar also updates the
// caller's avatar_url.
// POST /api/uploads/image (multipart: file, kind)
func (h *Handlers) UploadImage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("image storage"))
		return
	}

	kind := storage.KindPost
	switch c.DefaultPostForm("kind", "post") {
	case "post":
	case "avatar":
		kind = storage.KindAvatar
	default:
		util.RespondValidationError(c, "kind", "kind must be post or avatar")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		util.RespondValidationError(c, "file", "file is required")
		return
	}
	if fh.Size > storage.MaxImageBytes {
		util.RespondValidationError(c, "file", storage.ErrFileTooLarge.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		util.RespondBadRequest(c, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageBytes+1))
	if err != nil {
		util.RespondBadRequest(c, "failed to read upload")
		return
	}

	ctx := c.Request.Context()
	result, err := h.uploader.UploadImage(ctx, data, userID, fh.Filename, kind)
	if err != nil {
		switch {
		case stderrors.Is(err, storage.ErrEmptyFile),
			stderrors.Is(err, storage.ErrFileTooLarge),
			stderrors.Is(err, storage.ErrUnsupportedType):
			util.RespondValidationError(c, "file", err.Error())
		default:
			util.RespondInternalError(c, "failed to upload image", err)
		}
		return
	}

	if kind == storage.KindAvatar {
		if _, err := h.users.UpdateProfile(ctx, userID, map[string]any{"avatar_url": result.URL}); err != nil {
			if delErr := h.uploader.DeleteFile(ctx, result.Key); delErr != nil {
				logger.WarnWithFields("Failed to remove orphaned avatar", delErr, zap.String("key", result.Key))
			}
			util.RespondInternalError(c, "failed to update avatar", err)
			return
		}
	}

	logger.Log.Info("Image uploaded",
		logger.WithUserID(userID),
		zap.String("key", result.Key),
		zap.Int64("size", result.Size),
	)
	c.JSON(http.StatusCreated, gin.H{"upload": result})
}
