package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/webedmilson/bancoCred/api/model"
	"github.com/webedmilson/bancoCred/api/middleware"
)

func (a Api) CreateTransaction(c *gin.Context) {
	var req model2.RecordTransaction
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.ValidateRecordTransaction(); err != nil {
		badRequest(c, err)
		return
	}

	txn, err := a.service.Execute(c.Request.Context(), req.ToOperation(), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

func (a Api) GetTransaction(c *gin.Context) {
	txn, err := a.service.GetTransaction(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

func (a Api) ListTransactions(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		badRequest(c, err)
		return
	}

	txns, err := a.service.ListTransactions(c.Request.Context(), middleware.ActorID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}
