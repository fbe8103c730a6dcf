package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/access"
	"simplyinvoicing/api/internal/auth"
	"simplyinvoicing/api/internal/config"
	"simplyinvoicing/api/internal/metrics"
	"simplyinvoicing/api/internal/payments"
	"simplyinvoicing/api/internal/services"
	"simplyinvoicing/api/internal/storage"
)

// Context key type for AuthResult
type authContextKey string

const authResultKey authContextKey = "authResult"

// maxRequestBodyBytes caps a single JSON-API request.
const maxRequestBodyBytes = 1 << 20

// Error codes sent next to the error message.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodePermissionDenied   = "permission-denied"
	CodeNotFound           = "not-found"
	CodeAlreadyExists      = "already-exists"
	CodeInvalidArgument    = "invalid-argument"
	CodeFailedPrecondition = "failed-precondition"
	CodeResourceExhausted  = "resource-exhausted"
	CodeInternal           = "internal"
)

const codeOK = "ok"

// AuthResult holds optional authentication details. UserID is empty for guests.
type AuthResult struct {
	UserID  string
	IsAdmin bool
}

func getAuthFromContext(ctx context.Context) (*AuthResult, bool) {
	val, ok := ctx.Value(authResultKey).(*AuthResult)
	return val, ok
}

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ApiError is an error shown to the caller as is.
type ApiError struct {
	Message string
	Code    string
}

func (e *ApiError) Error() string {
	return e.Message
}

// NewApiError creates an invalid-argument error.
func NewApiError(message string) *ApiError {
	return &ApiError{Message: message, Code: CodeInvalidArgument}
}

func newCodedError(code, message string) *ApiError {
	return &ApiError{Message: message, Code: code}
}

// apiMethodFunc defines the signature for handler methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// apiMethod is a dispatch table entry. Non-public methods need a valid token,
// and the permission, when set, is checked against the caller's role.
type apiMethod struct {
	handler    apiMethodFunc
	public     bool
	permission access.Permission
}

// Services groups the services the JSON API dispatches to.
type Services struct {
	Users         services.IUserService
	Roles         services.IRoleService
	Invoices      services.IInvoiceService
	Clients       services.IClientService
	Settings      services.ISettingsService
	Usage         services.IUsageService
	Subscriptions services.ISubscriptionService
	Emails        services.IEmailService
}

// JsonApiHandler holds dependencies for handling JSON API requests.
type JsonApiHandler struct {
	cfg                 *config.Config
	metrics             *metrics.Metrics
	userService         services.IUserService
	roleService         services.IRoleService
	invoiceService      services.IInvoiceService
	clientService       services.IClientService
	settingsService     services.ISettingsService
	usageService        services.IUsageService
	subscriptionService services.ISubscriptionService
	emailService        services.IEmailService
	methods             map[string]apiMethod
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
// m may be nil.
func NewJsonApiHandler(cfg *config.Config, m *metrics.Metrics, svc Services) *JsonApiHandler {
	h := &JsonApiHandler{
		cfg:                 cfg,
		metrics:             m,
		userService:         svc.Users,
		roleService:         svc.Roles,
		invoiceService:      svc.Invoices,
		clientService:       svc.Clients,
		settingsService:     svc.Settings,
		usageService:        svc.Usage,
		subscriptionService: svc.Subscriptions,
		emailService:        svc.Emails,
	}

	perm := access.NewPermission
	h.methods = map[string]apiMethod{
		"ping":   {handler: h.ping, public: true},
		"signUp": {handler: h.signUp, public: true},
		"signIn": {handler: h.signIn, public: true},

		"refreshToken":  {handler: h.refreshToken},
		"getProfile":    {handler: h.getProfile},
		"updateProfile": {handler: h.updateProfile},
		"getMyRole":     {handler: h.getMyRole},
		"setUserRole":   {handler: h.setUserRole, permission: perm(access.ResourceRole, access.ActionManage)},

		"calculateInvoiceTotals": {handler: h.calculateInvoiceTotals, permission: perm(access.ResourceInvoice, access.ActionRead)},
		"createInvoice":          {handler: h.createInvoice, permission: perm(access.ResourceInvoice, access.ActionCreate)},
		"updateInvoice":          {handler: h.updateInvoice, permission: perm(access.ResourceInvoice, access.ActionUpdate)},
		"getInvoice":             {handler: h.getInvoice, permission: perm(access.ResourceInvoice, access.ActionRead)},
		"listInvoices":           {handler: h.listInvoices, permission: perm(access.ResourceInvoice, access.ActionRead)},
		"deleteInvoice":          {handler: h.deleteInvoice, permission: perm(access.ResourceInvoice, access.ActionDelete)},
		"setInvoiceStatus":       {handler: h.setInvoiceStatus, permission: perm(access.ResourceInvoice, access.ActionUpdate)},
		"getInvoiceArchiveUrl":   {handler: h.getInvoiceArchiveURL, permission: perm(access.ResourceInvoice, access.ActionRead)},
		"sendInvoiceEmail":       {handler: h.sendInvoiceEmail, permission: perm(access.ResourceInvoice, access.ActionSend)},
		"checkInvoiceLimit":      {handler: h.checkInvoiceLimit, permission: perm(access.ResourceInvoice, access.ActionCreate)},
		"listEmailLogs":          {handler: h.listEmailLogs, permission: perm(access.ResourceEmailLog, access.ActionRead)},

		"createClient": {handler: h.createClient, permission: perm(access.ResourceClient, access.ActionCreate)},
		"updateClient": {handler: h.updateClient, permission: perm(access.ResourceClient, access.ActionUpdate)},
		"getClient":    {handler: h.getClient, permission: perm(access.ResourceClient, access.ActionRead)},
		"listClients":  {handler: h.listClients, permission: perm(access.ResourceClient, access.ActionRead)},
		"deleteClient": {handler: h.deleteClient, permission: perm(access.ResourceClient, access.ActionDelete)},

		"getSettings":    {handler: h.getSettings, permission: perm(access.ResourceSettings, access.ActionRead)},
		"updateSettings": {handler: h.updateSettings, permission: perm(access.ResourceSettings, access.ActionUpdate)},

		"createCheckoutSession":       {handler: h.createCheckoutSession, permission: perm(access.ResourceBilling, access.ActionManage)},
		"createCustomerPortalSession": {handler: h.createCustomerPortalSession, permission: perm(access.ResourceBilling, access.ActionManage)},
		"getSubscriptionStatus":       {handler: h.getSubscriptionStatus, permission: perm(access.ResourceBilling, access.ActionRead)},
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendErrorResponse(c, "", NewApiError("Request body too large"))
			return
		}
		h.sendErrorResponse(c, "", NewApiError("Failed to read request body"))
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, "", NewApiError("Invalid JSON request format"))
		return
	}

	method, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, "", newCodedError(CodeNotFound, fmt.Sprintf("Unknown method: %s", req.Method)))
		return
	}

	if authErr := h.checkAuthForMethod(c, req.Method, method); authErr != nil {
		h.sendErrorResponse(c, req.Method, authErr)
		return
	}

	result, apiErr := method.handler(c, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, req.Method, apiErr)
		return
	}

	h.sendSuccessResponse(c, req.Method, result)
}

// checkAuthForMethod validates the bearer token and the method permission.
// It stores the AuthResult in c.Request.Context().
func (h *JsonApiHandler) checkAuthForMethod(c *gin.Context, name string, method apiMethod) *ApiError {
	authRes := &AuthResult{}
	tokenString, hasToken := bearerToken(c.GetHeader("Authorization"))

	if method.public {
		if hasToken {
			claims, err := auth.ValidateJWT(tokenString, h.cfg.JwtSecret)
			if err == nil {
				authRes = &AuthResult{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
			} else {
				log.WithFields(log.Fields{"method": name, "error": err}).Debug("Invalid optional auth token, proceeding as guest")
			}
		}
		setAuth(c, authRes)
		return nil
	}

	if !hasToken {
		return newCodedError(CodeUnauthenticated, "Authorization header format must be Bearer {token}")
	}
	claims, err := auth.ValidateJWT(tokenString, h.cfg.JwtSecret)
	if err != nil {
		log.WithFields(log.Fields{"method": name, "error": err}).Debug("Token validation failed")
		return newCodedError(CodeUnauthenticated, "Invalid or expired token")
	}
	authRes = &AuthResult{UserID: claims.UserID, IsAdmin: claims.IsAdmin}
	setAuth(c, authRes)

	if method.permission != "" {
		if err := h.roleService.Authorize(c.Request.Context(), claims.UserID, method.permission); err != nil {
			return h.translateError(name, err)
		}
	}
	return nil
}

func setAuth(c *gin.Context, authRes *AuthResult) {
	ctx := context.WithValue(c.Request.Context(), authResultKey, authRes)
	c.Request = c.Request.WithContext(ctx)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// currentUserID returns the authenticated caller. Dispatch guarantees it for
// non-public methods.
func currentUserID(c *gin.Context) (string, *ApiError) {
	authInfo, ok := getAuthFromContext(c.Request.Context())
	if !ok || authInfo.UserID == "" {
		return "", newCodedError(CodeUnauthenticated, "Authentication required")
	}
	return authInfo.UserID, nil
}

// translateError maps service errors to a caller-facing message and code.
// Unexpected errors are logged and hidden behind a generic message.
func (h *JsonApiHandler) translateError(method string, err error) *ApiError {
	var validationErr *services.ValidationError
	var quotaErr *services.QuotaError
	var sendErr *services.SendError

	switch {
	case errors.As(err, &validationErr):
		return newCodedError(CodeInvalidArgument, validationErr.Error())
	case errors.As(err, &quotaErr):
		return newCodedError(CodeResourceExhausted, quotaErr.Reason)
	case errors.Is(err, services.ErrQuotaExceeded):
		return newCodedError(CodeResourceExhausted, err.Error())
	case errors.As(err, &sendErr):
		log.WithFields(log.Fields{"method": method, "error": sendErr.Err}).Warn("Email delivery failed")
		return newCodedError(CodeInternal, sendErr.Message)
	case errors.Is(err, services.ErrUnauthenticated):
		return newCodedError(CodeUnauthenticated, "Authentication required")
	case errors.Is(err, services.ErrInvalidCredentials):
		return newCodedError(CodeUnauthenticated, "Invalid email or password")
	case errors.Is(err, services.ErrForbidden):
		return newCodedError(CodePermissionDenied, "You do not have permission to perform this action")
	case errors.Is(err, services.ErrNotFound):
		return newCodedError(CodeNotFound, "Not found")
	case errors.Is(err, services.ErrEmailExists):
		return newCodedError(CodeAlreadyExists, "An account with this email already exists")
	case errors.Is(err, services.ErrNoCustomer):
		return newCodedError(CodeFailedPrecondition, "No billing account found. Subscribe to a plan first.")
	case errors.Is(err, payments.ErrNotConfigured):
		return newCodedError(CodeFailedPrecondition, "Billing is not available right now")
	case errors.Is(err, storage.ErrNotConfigured):
		return newCodedError(CodeFailedPrecondition, "Invoice archive is not available")
	}

	log.WithFields(log.Fields{"method": method, "error": err}).Error("JSON API method failed")
	return newCodedError(CodeInternal, "Internal error")
}

// --- Private helper methods ---

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, method string, data interface{}) {
	h.record(method, codeOK)
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

// sendErrorResponse answers with HTTP 200 so the client can show the message.
func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, method string, apiErr *ApiError) {
	code := apiErr.Code
	if code == "" {
		code = CodeInternal
	}
	h.record(method, code)
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: apiErr.Message, Code: code})
}

func (h *JsonApiHandler) record(method, code string) {
	if h.metrics == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	h.metrics.RPCCallsTotal.WithLabelValues(method, code).Inc()
}

func (h *JsonApiHandler) parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	if rawArgPayload == nil {
		return NewApiError("Missing 'arguments' field; expected a JSON array with one argument.")
	}

	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return NewApiError("Invalid 'arguments': array is empty, but one argument is expected.")
	}

	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// parseOptionalSingleArgFromArray leaves the target untouched when no
// argument was sent.
func (h *JsonApiHandler) parseOptionalSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	if rawArgPayload == nil {
		return nil
	}
	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 || string(argArray[0]) == "null" {
		return nil
	}
	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return "pong", nil
}
