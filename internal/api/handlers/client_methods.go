package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"simplyinvoicing/api/internal/models"
)

// UpdateClientArgs carries the client id next to the editable fields.
type UpdateClientArgs struct {
	ClientID string `json:"clientId"`
	models.ClientInput
}

// ListClientsArgs is the optional filter of listClients.
type ListClientsArgs struct {
	Status models.ClientStatus `json:"status"`
}

func (h *JsonApiHandler) parseClientID(args json.RawMessage) (string, *ApiError) {
	var clientID string
	if apiErr := h.parseRequiredSingleArgFromArray(args, &clientID); apiErr != nil {
		return "", apiErr
	}
	if clientID == "" {
		return "", NewApiError("clientId is required")
	}
	return clientID, nil
}

func (h *JsonApiHandler) createClient(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var in models.ClientInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	client, err := h.clientService.Create(c.Request.Context(), userID, in)
	if err != nil {
		return nil, h.translateError("createClient", err)
	}
	return client, nil
}

func (h *JsonApiHandler) updateClient(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs UpdateClientArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.ClientID == "" {
		return nil, NewApiError("clientId is required")
	}
	client, err := h.clientService.Update(c.Request.Context(), userID, reqArgs.ClientID, reqArgs.ClientInput)
	if err != nil {
		return nil, h.translateError("updateClient", err)
	}
	return client, nil
}

func (h *JsonApiHandler) getClient(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	clientID, apiErr := h.parseClientID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	client, err := h.clientService.Get(c.Request.Context(), userID, clientID)
	if err != nil {
		return nil, h.translateError("getClient", err)
	}
	return client, nil
}

func (h *JsonApiHandler) listClients(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs ListClientsArgs
	if apiErr := h.parseOptionalSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	clients, err := h.clientService.List(c.Request.Context(), userID, reqArgs.Status)
	if err != nil {
		return nil, h.translateError("listClients", err)
	}
	if clients == nil {
		clients = []models.Client{}
	}
	return clients, nil
}

func (h *JsonApiHandler) deleteClient(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	clientID, apiErr := h.parseClientID(args)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := h.clientService.Delete(c.Request.Context(), userID, clientID); err != nil {
		return nil, h.translateError("deleteClient", err)
	}
	return "deleted", nil
}

func (h *JsonApiHandler) getSettings(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	settings, err := h.settingsService.Get(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("getSettings", err)
	}
	return settings, nil
}

func (h *JsonApiHandler) updateSettings(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var in models.SettingsInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	settings, err := h.settingsService.Update(c.Request.Context(), userID, in)
	if err != nil {
		return nil, h.translateError("updateSettings", err)
	}
	return settings, nil
}
