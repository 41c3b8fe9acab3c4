package instrument

import "context"

type correlationKey struct{}

// invalidCorrelationID marks a context value that was not a string.
const invalidCorrelationID = "[invalid_chain_id]"

// SetCorrelationID stores the request correlation id on the context.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// GetCorrelationID returns the correlation id, or an empty string when the
// context carries none.
func GetCorrelationID(ctx context.Context) string {
	val := ctx.Value(correlationKey{})
	if val == nil {
		return ""
	}

	id, ok := val.(string)
	if !ok {
		return invalidCorrelationID
	}

	return id
}
