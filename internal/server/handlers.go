package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"growth-engine/internal/models"
)

func (h *handlers) Me(c *gin.Context) {
	p, err := h.profiles.Get(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) Onboarding(c *gin.Context) {
	var o models.Onboarding
	if err := c.ShouldBindJSON(&o); err != nil {
		badRequest(c, "invalid onboarding payload")
		return
	}
	p, err := h.profiles.Onboard(c.Request.Context(), userID(c), o)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) Today(c *gin.Context) {
	view, err := h.tasks.Today(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// statusRequest.Day 0 means the user's current day.
type statusRequest struct {
	Status string `json:"status"`
	Day    int    `json:"day"`
}

func (h *handlers) UpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid status payload")
		return
	}
	if err := h.tasks.SetStatus(c.Request.Context(), userID(c), c.Param("taskId"), req.Day, req.Status); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) CompleteDay(c *gin.Context) {
	adv, err := h.tasks.CompleteDay(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, adv)
}

type switchRequest struct {
	ProgramID string `json:"programId"`
}

func (h *handlers) SwitchProgram(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid program payload")
		return
	}
	sw, err := h.tasks.SwitchProgram(c.Request.Context(), userID(c), req.ProgramID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sw)
}

func (h *handlers) SubmitKPI(c *gin.Context) {
	var m models.KPIMetrics
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, "invalid kpi payload")
		return
	}
	entry, err := h.profiles.RecordKPI(c.Request.Context(), userID(c), m)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *handlers) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid redeem payload")
		return
	}
	res, err := h.ledger.Redeem(c.Request.Context(), userID(c), req.Code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type generateRequest struct {
	TaskID    string         `json:"taskId"`
	Variables map[string]any `json:"variables"`
}

func (h *handlers) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid generation payload")
		return
	}
	res, err := h.content.Generate(c.Request.Context(), userID(c), req.TaskID, stringifyVars(req.Variables))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) Upgrade(c *gin.Context) {
	p, err := h.profiles.Upgrade(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// stringifyVars flattens client supplied template variables. Nulls are
// dropped so the placeholder stays visible.
func stringifyVars(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			b, err := json.Marshal(t)
			if err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}
