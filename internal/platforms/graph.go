package platforms

import "fmt"

// GraphError is the error envelope of the Facebook Graph API, shared by the
// Facebook and Instagram adapters
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
}

// Graph API error codes that map onto the taxonomy
const (
	graphCodeAuth         = 190 // invalid or expired access token
	graphCodeTooManyCalls = 4
	graphCodeUserThrottle = 17
	graphCodePageThrottle = 32
	graphCodeCustomLimit  = 613
)

// MapGraphError converts a Graph API error response into a typed Error
func MapGraphError(provider, op string, statusCode int, g *GraphError) *Error {
	message := fmt.Sprintf("graph api error (code %d): %s", g.Code, g.Message)

	switch g.Code {
	case graphCodeTooManyCalls, graphCodeUserThrottle, graphCodePageThrottle, graphCodeCustomLimit:
		return NewTransient(provider, op, message, nil)
	}

	// Throttling codes above also carry type OAuthException, so the rate
	// limit check must run first
	if g.Code == graphCodeAuth || g.Type == "OAuthException" {
		return NewAuthExpired(provider, op, "Token expired, please reconnect your account")
	}

	if statusCode == 429 || statusCode >= 500 {
		return NewTransient(provider, op, message, nil)
	}

	return NewPermanent(provider, op, message, nil)
}
