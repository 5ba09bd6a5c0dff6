package models

// CodeOK is the envelope code the backend uses for success.
const CodeOK = 200

// Envelope wraps every backend response.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// OK reports whether the envelope carries a success code.
func (e Envelope[T]) OK() bool { return e.Code == CodeOK }

// TokenData is the payload of guest issuance.
type TokenData struct {
	Token string `json:"token"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Token    string      `json:"token"`
	UserInfo UserProfile `json:"userInfo"`
}

// GuestRequest is the body sent to mint a guest token.
type GuestRequest struct {
	Fingerprint string `json:"fingerprint"`
	UserAgent   string `json:"userAgent"`
	IP          string `json:"ip"`
}
