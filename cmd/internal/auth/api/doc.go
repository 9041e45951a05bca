// Package api exposes the credential workflows over HTTP: registration,
// login and password change under /api/users/. Successful register and
// login responses carry the session token in the x-auth-token header;
// bodies contain public user fields only.
package api
