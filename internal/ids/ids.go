// Package ids generates the client-side identifiers stored in every table.
//
// Identifiers look like <prefix>_<unix millis>_<token>, where token is nine
// base36 characters drawn from a random UUID. Collisions are possible but
// need two ids with the same prefix in the same millisecond sharing a token.
package ids

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixUser     = "user"
	PrefixChatUser = "usr"
	PrefixChannel  = "ch"
	PrefixMessage  = "msg"
	PrefixPost     = "post"
	PrefixAvatar   = "avatar"
)

const tokenLength = 9

// now is swapped by tests.
var now = time.Now

// New returns a fresh identifier with the given prefix.
func New(prefix string) string {
	return prefix + "_" + strconv.FormatInt(now().UnixMilli(), 10) + "_" + Token()
}

// Token returns a short random base36 string.
func Token() string {
	u := uuid.New()
	s := new(big.Int).SetBytes(u[:]).Text(36)
	if len(s) < tokenLength {
		s = strings.Repeat("0", tokenLength-len(s)) + s
	}
	return s[len(s)-tokenLength:]
}

// AvatarFilename names a stored avatar, keeping the upload's extension.
func AvatarFilename(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return New(PrefixAvatar) + ext
}
