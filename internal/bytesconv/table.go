package bytesconv

var (
	// Hex2intTable 将十六进制字符映射为数值，非法字符为 16。
	Hex2intTable = func() [256]byte {
		var t [256]byte
		for i := range t {
			switch c := byte(i); {
			case c >= '0' && c <= '9':
				t[i] = c - '0'
			case c >= 'a' && c <= 'f':
				t[i] = c - 'a' + 10
			case c >= 'A' && c <= 'F':
				t[i] = c - 'A' + 10
			default:
				t[i] = 16
			}
		}
		return t
	}()

	// ToLowerTable 是 ASCII 小写映射表。
	ToLowerTable = func() [256]byte {
		var t [256]byte
		for i := range t {
			c := byte(i)
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			t[i] = c
		}
		return t
	}()

	// ToUpperTable 是 ASCII 大写映射表。
	ToUpperTable = func() [256]byte {
		var t [256]byte
		for i := range t {
			c := byte(i)
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			t[i] = c
		}
		return t
	}()

	// QuotedArgShouldEscapeTable 标记查询参数中需要转义的字符，与 url.QueryEscape 一致。
	QuotedArgShouldEscapeTable = func() [256]byte {
		var t [256]byte
		for i := range t {
			c := byte(i)
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			case c == '-', c == '_', c == '.', c == '~':
			default:
				t[i] = 1
			}
		}
		return t
	}()
)
