package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/webedmilson/bancoCred/api/model"
	"github.com/webedmilson/bancoCred/api/middleware"
)

func (a Api) OpenAccount(c *gin.Context) {
	var req model2.OpenAccount
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if err := req.ValidateOpenAccount(); err != nil {
		badRequest(c, err)
		return
	}

	account, err := a.service.OpenAccount(c.Request.Context(), middleware.ActorID(c), req.ToAccountType())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (a Api) ListAccounts(c *gin.Context) {
	accounts, err := a.service.ListAccounts(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (a Api) GetAccount(c *gin.Context) {
	account, err := a.service.GetAccount(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (a Api) ReplayAccount(c *gin.Context) {
	replay, err := a.service.ReplayOwnAccount(c.Request.Context(), middleware.ActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, replay)
}
