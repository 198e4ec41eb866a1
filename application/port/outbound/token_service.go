package outbound

// TokenClaims are the authenticated caller attributes carried by a bearer
// token. Session issuance lives outside this service; only validation is
// needed here so audit events can be attributed.
type TokenClaims struct {
	UserID string
	Email  string
}

type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}
