package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// CreateCheckoutSessionArgs defines the arguments for createCheckoutSession.
// The URLs are optional and default to the billing pages of the app.
type CreateCheckoutSessionArgs struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

func (h *JsonApiHandler) createCheckoutSession(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs CreateCheckoutSessionArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	session, err := h.subscriptionService.CreateCheckoutSession(c.Request.Context(), userID, reqArgs.PriceID, reqArgs.SuccessURL, reqArgs.CancelURL)
	if err != nil {
		return nil, h.translateError("createCheckoutSession", err)
	}
	log.WithFields(log.Fields{"userID": userID, "priceID": reqArgs.PriceID, "sessionID": session.ID}).Info("Checkout session created")
	return session, nil
}

func (h *JsonApiHandler) createCustomerPortalSession(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	url, err := h.subscriptionService.CreatePortalSession(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("createCustomerPortalSession", err)
	}
	return gin.H{"url": url}, nil
}

func (h *JsonApiHandler) getSubscriptionStatus(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	status, err := h.subscriptionService.GetStatus(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("getSubscriptionStatus", err)
	}
	return status, nil
}
