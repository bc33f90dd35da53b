package channel

// Token is a control marker sent ahead of a payload transfer so the peer
// knows the meaning of the next value.
type Token int

//go:generate go tool stringer -linecomment -type=Token
const (
	TOKEN_READ_REQUEST = Token(0) // read
	TOKEN_WRITE_EVENT  = Token(1) // write
)
