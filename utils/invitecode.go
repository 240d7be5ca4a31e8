package utils

import "crypto/rand"

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodeLength is the length of room invite codes.
const InviteCodeLength = 6

// GenerateInviteCode returns a random 6-character alphanumeric code.
// Uniqueness is not guaranteed here; the caller retries against the
// store's unique index on collision.
func GenerateInviteCode() string {
	b := make([]byte, InviteCodeLength)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	out := make([]byte, InviteCodeLength)
	for i, v := range b {
		out[i] = inviteCodeChars[int(v)%len(inviteCodeChars)]
	}
	return string(out)
}
