package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/ledger"
	"github.com/shpluspower/backend/internal/referral"
	"github.com/shpluspower/backend/internal/syncer"
	"github.com/shpluspower/backend/internal/utils"
)

// AuthHandler handles signup, login and admin login
type AuthHandler struct {
	ledger   *ledger.Engine
	referral *referral.Engine
	sync     *syncer.Coordinator
	cfg      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(ledgerEngine *ledger.Engine, referralEngine *referral.Engine, sync *syncer.Coordinator, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		ledger:   ledgerEngine,
		referral: referralEngine,
		sync:     sync,
		cfg:      cfg,
	}
}

// Signup creates an account, credits the welcome bonus and applies any
// referral code.
func (h *AuthHandler) Signup(c *gin.Context) {
	var input struct {
		Name         string `json:"name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Phone        string `json:"phone"`
		Password     string `json:"password" binding:"required,min=8"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ledger.Signup(ledger.SignupInput{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Password:     input.Password,
		ReferralCode: input.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// Unknown codes are ignored, not rejected.
	if input.ReferralCode != "" {
		if err := h.referral.OnSignup(user.ID, input.ReferralCode); err != nil {
			respondError(c, err)
			return
		}
	}

	h.sync.Kick()

	c.JSON(http.StatusCreated, gin.H{
		"user_id":        user.ID,
		"account_number": user.AccountNumber,
		"referral_code":  user.ReferralCode,
	})
}

// Login verifies credentials and returns a session token
func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.ledger.Login(input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, false, time.Duration(h.cfg.JWT.Expiration)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	h.sync.Kick()

	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"user_id":        user.ID,
		"name":           user.Name,
		"balance":        user.Balance,
		"account_number": user.AccountNumber,
	})
}

// AdminLogin grants an admin session when the admin password matches
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var input struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.cfg.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.cfg.Admin.Password)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin password"})
		return
	}

	token, err := utils.GenerateToken(uuid.Nil, "admin", true, time.Duration(h.cfg.JWT.Expiration)*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	h.sync.Kick()

	c.JSON(http.StatusOK, gin.H{"token": token})
}
