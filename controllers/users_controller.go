package controllers

import (
	"net/http"

	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
)

// POST /users
func CreateUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateUserDTO
		if !bindJSON(c, &body) {
			return
		}
		user, err := users.Create(c.Request.Context(), middleware.CurrentUser(c), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusCreated, "User created successfully", gin.H{"user": user})
	}
}

// GET /users?page=&limit=
func ListUsers(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, skip := utils.Pagination(c.Query("page"), c.Query("limit"))
		res, err := users.List(c.Request.Context(), middleware.CurrentUser(c), page, limit, skip)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", res)
	}
}

// GET /users/:id
func GetUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		user, err := users.Get(c.Request.Context(), middleware.CurrentUser(c), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"user": user})
	}
}

// PUT /users/:id
func UpdateUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateUserDTO
		if !bindJSON(c, &body) {
			return
		}
		user, err := users.Update(c.Request.Context(), middleware.CurrentUser(c), id, body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "User updated successfully", gin.H{"user": user})
	}
}

// DELETE /users/:id
func DeleteUser(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := users.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "User deleted successfully", nil)
	}
}
