package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webedmilson/bancoCred/api/middleware"
	"github.com/webedmilson/bancoCred/model"
)

func (a Api) RegisterUser(c *gin.Context) {
	var input model.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.service.RegisterUser(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (a Api) GetCurrentUser(c *gin.Context) {
	resp, err := a.service.GetUser(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
