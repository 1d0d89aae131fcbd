package handlers

import (
	"github.com/gin-gonic/gin"

	"dental-clinic-server/internal/contacts"
	"dental-clinic-server/internal/utils"
)

const messageNotFound = "Message not found"

// MessageHandler handles the public contact form and the staff inbox.
type MessageHandler struct {
	Service *contacts.Service
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service *contacts.Service) *MessageHandler {
	return &MessageHandler{Service: service}
}

// SubmitContact stores a message from the public contact form.
func (h *MessageHandler) SubmitContact(c *gin.Context) {
	var req contacts.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid JSON in request body")
		return
	}

	msg, err := h.Service.Submit(c.Request.Context(), req)
	if err != nil {
		utils.HandleError(c, err, messageNotFound)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}

// ListMessages returns the inbox newest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var params contacts.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		utils.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	res, err := h.Service.List(c.Request.Context(), params)
	if err != nil {
		utils.HandleError(c, err, messageNotFound)
		return
	}
	utils.SuccessWithMeta(c, "Messages fetched successfully", res.Messages, gin.H{
		"total":      res.Total,
		"page":       res.Page,
		"limit":      res.Limit,
		"totalPages": res.TotalPages,
	})
}

// MarkMessageAsRead flags a message as handled.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	msg, err := h.Service.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err, messageNotFound)
		return
	}
	utils.Success(c, "Message marked as read", msg)
}

// DeleteMessage removes a message from the inbox.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		utils.HandleError(c, err, messageNotFound)
		return
	}
	utils.Success(c, "Message deleted successfully", nil)
}
