package domain

// ValidNationalID checks an Ecuadorian cédula: ten digits with a
// modulo-10 check digit computed over the first nine.
func ValidNationalID(id string) bool {
	if len(id) != 10 {
		return false
	}
	coefficients := [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}
	sum := 0
	for i := 0; i < 9; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		product := int(c-'0') * coefficients[i]
		if product >= 10 {
			product -= 9
		}
		sum += product
	}
	last := id[9]
	if last < '0' || last > '9' {
		return false
	}
	check := ((sum/10)+1)*10 - sum
	if check == 10 {
		check = 0
	}
	return check == int(last-'0')
}
