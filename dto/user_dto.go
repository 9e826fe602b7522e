package dto

type CreateUserDTO struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

type NotificationPreferencesDTO struct {
	Email *bool `json:"email"`
	SMS   *bool `json:"sms"`
	Push  *bool `json:"push"`
}

type PreferencesDTO struct {
	Timezone      *string                     `json:"timezone"`
	Notifications *NotificationPreferencesDTO `json:"notifications"`
}

// UpdateUserDTO fields are optional pointers. Role and IsActive are
// admin only.
type UpdateUserDTO struct {
	Name        *string         `json:"name"`
	Email       *string         `json:"email"`
	Preferences *PreferencesDTO `json:"preferences"`
	Role        *string         `json:"role"`
	IsActive    *bool           `json:"isActive"`
}
