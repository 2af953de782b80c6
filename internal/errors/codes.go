package errors

// Error codes returned in ErrorResponse.Error.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to copy.

const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthWeakPassword       = "AUTH_WEAK_PASSWORD"

	// authorization
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// validation
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationTooShort      = "VALIDATION_TOO_SHORT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// session
	SessionGuestTokenInvalid = "SESSION_GUEST_TOKEN_INVALID"

	// products
	ProductNotFound  = "PRODUCT_NOT_FOUND"
	CategoryNotFound = "CATEGORY_NOT_FOUND"

	// cart
	CartIdentityUnknown = "CART_IDENTITY_UNKNOWN"
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartStockExceeded   = "CART_STOCK_EXCEEDED"
	CartOutOfStock      = "CART_OUT_OF_STOCK"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"
	CartEmpty           = "CART_EMPTY"

	// orders
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	OrderInvalidStatus     = "ORDER_INVALID_STATUS"

	// rate limiting
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalStoreDown     = "INTERNAL_STORE_UNAVAILABLE"
)
