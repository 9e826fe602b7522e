package controllers

import (
	"net/http"

	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
)

func AddMember(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.AddMemberDTO
		if !bindJSON(c, &body) {
			return
		}
		m, err := members.Add(c.Request.Context(), middleware.CurrentUser(c), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusCreated, "", gin.H{"member": m})
	}
}

func ListMembers(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		calID, ok := paramID(c, "calendar_id")
		if !ok {
			return
		}
		list, err := members.List(c.Request.Context(), middleware.CurrentUser(c), calID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"members": list})
	}
}

func UpdateMemberRole(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "memberId")
		if !ok {
			return
		}
		var body dto.UpdateMemberRoleDTO
		if !bindJSON(c, &body) {
			return
		}
		m, err := members.UpdateRole(c.Request.Context(), middleware.CurrentUser(c), id, body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"member": m})
	}
}

func RemoveMember(members *services.MemberService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "memberId")
		if !ok {
			return
		}
		if err := members.Remove(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Member removed", nil)
	}
}
