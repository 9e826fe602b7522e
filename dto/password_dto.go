package dto

// ResetPasswordDTO completes either the forgot-password flow (reset token,
// code optional) or the logged-in change flow (access token, code required).
type ResetPasswordDTO struct {
	Code            string `json:"code"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ChangePasswordRequestDTO struct {
	CurrentPassword string `json:"currentPassword"`
}
