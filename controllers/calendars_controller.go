package controllers

import (
	"net/http"

	"github.com/almanac/almanacbackend/dto"
	"github.com/almanac/almanacbackend/middleware"
	"github.com/almanac/almanacbackend/services"
	"github.com/almanac/almanacbackend/utils"
	"github.com/gin-gonic/gin"
)

func CreateCalendar(calendars *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCalendarDTO
		if !bindJSON(c, &body) {
			return
		}
		cal, err := calendars.Create(c.Request.Context(), middleware.CurrentUser(c), body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusCreated, "", gin.H{"calendar": cal})
	}
}

func ListCalendars(calendars *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cals, err := calendars.List(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"calendars": cals})
	}
}

func UpdateCalendar(calendars *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "calendarId")
		if !ok {
			return
		}
		var body dto.UpdateCalendarDTO
		if !bindJSON(c, &body) {
			return
		}
		cal, err := calendars.Update(c.Request.Context(), middleware.CurrentUser(c), id, body)
		if err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "", gin.H{"calendar": cal})
	}
}

func DeleteCalendar(calendars *services.CalendarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "calendarId")
		if !ok {
			return
		}
		if err := calendars.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			_ = c.Error(err)
			return
		}
		utils.Respond(c, http.StatusOK, "Calendar and associated members deleted", nil)
	}
}
