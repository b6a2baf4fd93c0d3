package otp

import "strings"

// AdminPolicy decides who is seeded as admin on a successful login: any
// address in Emails, or any address under Domain.
type AdminPolicy struct {
	Emails []string
	Domain string
}

func (p AdminPolicy) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range p.Emails {
		if strings.ToLower(strings.TrimSpace(e)) == email {
			return true
		}
	}
	domain := strings.ToLower(strings.TrimSpace(p.Domain))
	return domain != "" && strings.HasSuffix(email, "@"+domain)
}
