package domain

// ValidPeriod reports whether p is a filing period in MMYYYY form with a
// calendar month between 01 and 12.
func ValidPeriod(p string) bool {
	if len(p) != 6 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	month := int(p[0]-'0')*10 + int(p[1]-'0')
	return month >= 1 && month <= 12
}
