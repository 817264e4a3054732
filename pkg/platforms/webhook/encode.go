package webhook

import "strings"

const upperhex = "0123456789ABCDEF"

// uriReserved are the bytes left as-is besides ASCII letters and digits
const uriReserved = ";,/?:@&=+$-_.!~*'()#"

// EncodeURI percent-encodes s the way a browser encodes a full URI: every
// byte of its UTF-8 form is escaped except letters, digits and uriReserved.
func EncodeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnescaped(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnescaped(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte(uriReserved, c) >= 0
}
