package provisioning

import (
	"strings"
	"unicode"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
)

// LocalPart turns a display name into an email local part: lower case, words
// joined by dots, everything outside [a-z0-9] dropped.
func LocalPart(name string) string {
	var b strings.Builder
	pendingDot := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDot && b.Len() > 0 {
				b.WriteByte('.')
			}
			pendingDot = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_':
			pendingDot = true
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

// DomainLabel strips a hostel name down to [a-z0-9], so "Sunrise PG" becomes
// "sunrisepg".
func DomainLabel(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DeriveDomain returns the login domain for a hostel name using suffix.
func DeriveDomain(hostelName, suffix string) string {
	label := DomainLabel(hostelName)
	if label == "" {
		label = "hostel"
	}
	if suffix == "" {
		suffix = ".com"
	}
	if !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	return label + strings.ToLower(suffix)
}

// HostelDomain returns the configured domain of a hostel, deriving one from
// its name when absent.
func HostelDomain(hostel docstore.Record, suffix string) string {
	if domain := normalizeDomain(hostel.String("domain")); domain != "" {
		return domain
	}
	return DeriveDomain(hostel.String("name"), suffix)
}

// EmailDomain returns the lower-cased part after the last "@".
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return normalizeDomain(email[at+1:])
}

// DomainAllowed reports whether email may log in for hostel. The address must
// use the hostel domain, the domain of the hostel contact or admin email, or
// one of the allow-listed domains.
func DomainAllowed(email string, hostel docstore.Record, allowList []string, suffix string) bool {
	domain := EmailDomain(email)
	if domain == "" {
		return false
	}
	for _, allowed := range allowList {
		if domain == normalizeDomain(allowed) {
			return true
		}
	}
	if hostel == nil {
		return false
	}
	if domain == HostelDomain(hostel, suffix) {
		return true
	}
	for _, field := range []string{"contactEmail", "adminEmail"} {
		if contact := EmailDomain(hostel.String(field)); contact != "" && domain == contact {
			return true
		}
	}
	return false
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
}
