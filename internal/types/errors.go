package types

import "errors"

var ErrNotFound = errors.New("requested item not found")
var ErrConflict = errors.New("item already exists or conflict")
var ErrUnauthenticated = errors.New("authentication required or invalid credentials")
var ErrForbidden = errors.New("action forbidden")

// Token validation outcomes. The authentication gate swallows these and
// degrades the request to anonymous; they surface directly only from the
// token service itself.
var ErrTokenExpired = errors.New("token has expired")
var ErrTokenInvalid = errors.New("token is malformed or its signature does not match")
var ErrSubjectMismatch = errors.New("token subject does not match the expected identity")

var ErrStorage = errors.New("file storage failure")
