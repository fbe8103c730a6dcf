package handlers

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"simplyinvoicing/api/internal/auth"
	"simplyinvoicing/api/internal/models"
)

// SignUpArgs defines the arguments for the signUp method
type SignUpArgs struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SignInArgs defines the arguments for the signIn method
type SignInArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetUserRoleArgs defines the arguments for the setUserRole method
type SetUserRoleArgs struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// SessionResult is returned by signUp and signIn.
type SessionResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *JsonApiHandler) signUp(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs SignUpArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	user, err := h.userService.SignUp(ctx, reqArgs.Email, reqArgs.Password, reqArgs.DisplayName)
	if err != nil {
		return nil, h.translateError("signUp", err)
	}
	return h.newSession(ctx, user)
}

func (h *JsonApiHandler) signIn(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs SignInArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	user, err := h.userService.Authenticate(ctx, reqArgs.Email, reqArgs.Password)
	if err != nil {
		return nil, h.translateError("signIn", err)
	}
	return h.newSession(ctx, user)
}

func (h *JsonApiHandler) newSession(ctx context.Context, user *models.User) (interface{}, *ApiError) {
	token, apiErr := h.issueToken(ctx, user.ID)
	if apiErr != nil {
		return nil, apiErr
	}
	return &SessionResult{Token: token, User: user}, nil
}

// issueToken signs a token with the admin flag taken from the current role,
// so role changes show up on the next refresh.
func (h *JsonApiHandler) issueToken(ctx context.Context, userID string) (string, *ApiError) {
	isAdmin := false
	role, err := h.roleService.GetRole(ctx, userID)
	if err != nil {
		log.WithFields(log.Fields{"userID": userID, "error": err}).Warn("Failed to load role for token, issuing non-admin token")
	} else {
		isAdmin = role.Role == models.RoleAdmin
	}

	token, err := auth.GenerateJWT(userID, isAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		log.WithFields(log.Fields{"userID": userID, "error": err}).Error("Failed to generate JWT")
		return "", newCodedError(CodeInternal, "Failed to create session token")
	}
	return token, nil
}

func (h *JsonApiHandler) refreshToken(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	token, apiErr := h.issueToken(c.Request.Context(), userID)
	if apiErr != nil {
		return nil, apiErr
	}
	log.WithField("userID", userID).Debug("Refreshed token")
	return token, nil
}

func (h *JsonApiHandler) getProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("getProfile", err)
	}
	return user, nil
}

func (h *JsonApiHandler) updateProfile(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var in models.ProfileInput
	if apiErr := h.parseRequiredSingleArgFromArray(args, &in); apiErr != nil {
		return nil, apiErr
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		return nil, h.translateError("updateProfile", err)
	}
	return user, nil
}

func (h *JsonApiHandler) getMyRole(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	userID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	role, err := h.roleService.GetRole(c.Request.Context(), userID)
	if err != nil {
		return nil, h.translateError("getMyRole", err)
	}
	return role, nil
}

func (h *JsonApiHandler) setUserRole(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	adminID, apiErr := currentUserID(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var reqArgs SetUserRoleArgs
	if apiErr := h.parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.UserID == "" {
		return nil, NewApiError("userId is required")
	}

	role, err := h.roleService.SetRole(c.Request.Context(), reqArgs.UserID, reqArgs.Role)
	if err != nil {
		return nil, h.translateError("setUserRole", err)
	}
	log.WithFields(log.Fields{"adminID": adminID, "userID": reqArgs.UserID, "role": role.Role}).Info("User role changed")
	return role, nil
}
