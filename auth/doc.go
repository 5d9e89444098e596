// Package auth implements the credential flows of gatehouse.
//
// # Flows
//
// Service coordinates the user repository, the session store and a
// PasswordHasher:
//   - Register - validates input, enforces email uniqueness, stores a hash
//   - Login - verifies credentials and issues a session token
//   - Logout - destroys a session
//   - Authenticate - resolves a session token to an identity
//   - ChangePassword - re-verifies the current password and stores a new hash
//   - UpdateProfile - renames the user and the live session snapshot
//
// Every failure a client may see wraps one of the sentinel errors in
// errors.go and carries a public message. Anything else is a dependency
// failure and must not be shown to clients verbatim.
package auth
