package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/admin"
	"github.com/shpluspower/backend/internal/syncer"
)

// AdminHandler exposes the approval queue and admin stats
type AdminHandler struct {
	workflow *admin.Workflow
	log      *activity.Log
	sync     *syncer.Coordinator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(workflow *admin.Workflow, actLog *activity.Log, sync *syncer.Coordinator) *AdminHandler {
	return &AdminHandler{workflow: workflow, log: actLog, sync: sync}
}

// Stats returns the admin panel counters
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.workflow.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Activity returns the full activity log, newest first
func (h *AdminHandler) Activity(c *gin.Context) {
	entries, err := h.log.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity log"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ApproveDeposit approves a pending deposit entry. Approving an entry
// that is missing or already resolved is a no-op.
func (h *AdminHandler) ApproveDeposit(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	if err := h.workflow.ApproveDeposit(entryID, c.GetString("email")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve deposit"})
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}

// DeclineDeposit declines a pending deposit entry
func (h *AdminHandler) DeclineDeposit(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	if err := h.workflow.DeclineDeposit(entryID, c.GetString("email")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decline deposit"})
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
