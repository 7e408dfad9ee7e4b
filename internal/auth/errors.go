package auth

import "errors"

var (
	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	// This typically indicates a misconfigured OIDC provider or an incomplete authentication flow.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserNameExists is returned when attempting to create a user with a username that already exists.
	ErrUserNameExists = errors.New("user with username already exists")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured directory filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrLocalAccountConflict is returned when a same-named account exists locally
	// but is not managed by the authenticating backend. Local accounts are never
	// shadowed or overwritten by external accounts.
	ErrLocalAccountConflict = errors.New("a local account with this username already exists")

	// ErrProvisioningDisabled is returned when a directory credential verified
	// successfully but no local account exists and automatic account creation
	// is disabled.
	ErrProvisioningDisabled = errors.New("automatic account creation is disabled")

	// ErrNoLookupTerms is returned when an identity lookup is requested with
	// neither a username nor an email address.
	ErrNoLookupTerms = errors.New("identity lookup requires a username or an email address")

	// ErrIdentityAttributeMissing is returned when an email-only identity lookup
	// found an entry without the configured identity attribute. This indicates a
	// misconfiguration of which attribute represents the stable external identifier.
	ErrIdentityAttributeMissing = errors.New("directory entry has no identity attribute")
)
