package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/webedmilson/bancoCred/api/model"
	"github.com/webedmilson/bancoCred/api/middleware"
)

func (a Api) bindExchange(c *gin.Context) (*model2.Exchange, bool) {
	var req model2.Exchange
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return nil, false
	}
	if err := req.ValidateExchange(); err != nil {
		badRequest(c, err)
		return nil, false
	}
	return &req, true
}

func (a Api) Buy(c *gin.Context) {
	req, ok := a.bindExchange(c)
	if !ok {
		return
	}
	result, err := a.service.Buy(c.Request.Context(), middleware.ActorID(c), req.Amount, req.ToCurrency())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (a Api) Sell(c *gin.Context) {
	req, ok := a.bindExchange(c)
	if !ok {
		return
	}
	result, err := a.service.Sell(c.Request.Context(), middleware.ActorID(c), req.Amount, req.ToCurrency())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (a Api) GetRates(c *gin.Context) {
	quotes, err := a.service.GetRates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}
