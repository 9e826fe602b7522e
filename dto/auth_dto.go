package dto

// Auth request bodies carry no binding tags: the auth workflows validate
// their own input so every failure maps to a specific message.

type RegisterDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) EmailAddress() string { return d.Email }

type EmailDTO struct {
	Email string `json:"email"`
}

func (d EmailDTO) EmailAddress() string { return d.Email }

// VerifyCodeDTO is used by both verify-email and verify-reset-code.
type VerifyCodeDTO struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type RefreshDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutDTO struct {
	RefreshToken string `json:"refreshToken"`
}
