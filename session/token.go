package session

import "github.com/jmcleod/gatehouse/internal/util"

// tokenBytes is the entropy of a session token; the encoded form is twice as long.
const tokenBytes = 32

func newToken() (string, error) {
	return util.RandomHex(tokenBytes)
}

// validToken reports whether t has the shape of a token this package issues.
func validToken(t string) bool {
	if len(t) != 2*tokenBytes {
		return false
	}
	for i := 0; i < len(t); i++ {
		c := t[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
