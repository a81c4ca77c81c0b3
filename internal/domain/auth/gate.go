package auth

// GateState is the outcome of evaluating one request against the gate.
type GateState string

const (
	GateBypass            GateState = "bypass"
	GateNoToken           GateState = "no_token"
	GateTokenNoEmail      GateState = "token_no_email"
	GateTokenNotAdmin     GateState = "token_not_admin"
	GateTokenExpiredByAge GateState = "token_expired_by_age"
	GateAuthorized        GateState = "authorized"
	// GateError means evaluation itself failed; the request is never let through.
	GateError GateState = "auth_error"
)

// Error codes attached to the login redirect as ?error=<code>.
// The login page renders a message keyed off these values.
const (
	ErrCodeNoEmail        = "NoEmail"
	ErrCodeAccessDenied   = "AccessDenied"
	ErrCodeSessionExpired = "SessionExpired"
	ErrCodeAuthError      = "AuthError"
)

// DenyReason names why the sign-in gate refused a login.
type DenyReason string

const (
	DenyNone            DenyReason = ""
	DenyNoEmail         DenyReason = "no_email"
	DenyNotAllowed      DenyReason = "not_allowed"
	DenyWrongProvider   DenyReason = "wrong_provider"
	DenyEmailUnverified DenyReason = "email_unverified"
)
