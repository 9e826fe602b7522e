package dto

type CreateCalendarDTO struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=1000"`
	Type        string `json:"type" binding:"required,oneof=personal group"`
}

type UpdateCalendarDTO struct {
	Name        *string `json:"name" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Type        *string `json:"type" binding:"omitempty,oneof=personal group"`
}

type AddMemberDTO struct {
	UserID     string `json:"user_id" binding:"required"`
	CalendarID string `json:"calendar_id" binding:"required"`
	Role       string `json:"role" binding:"required,oneof=owner editor viewer"`
}

type UpdateMemberRoleDTO struct {
	Role string `json:"role" binding:"required,oneof=owner editor viewer"`
}
