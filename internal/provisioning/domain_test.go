package provisioning

import (
	"testing"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/stretchr/testify/assert"
)

func TestLocalPart(t *testing.T) {
	cases := map[string]string{
		"Ravi Kumar":        "ravi.kumar",
		"  Anita  D'Souza ": "anita.dsouza",
		"José":              "jos",
		"":                  "user",
		"R2-D2":             "r2.d2",
	}
	for in, want := range cases {
		assert.Equal(t, want, LocalPart(in), in)
	}
}

func TestDeriveDomain(t *testing.T) {
	assert.Equal(t, "sunrisepg.com", DeriveDomain("Sunrise PG", ".com"))
	assert.Equal(t, "sunrisepg.in", DeriveDomain("Sunrise PG", "in"))
	assert.Equal(t, "hostel.com", DeriveDomain("!!!", ""))
}

func TestHostelDomainPrefersConfiguredDomain(t *testing.T) {
	assert.Equal(t, "stay.example", HostelDomain(docstore.Record{"name": "Sunrise PG", "domain": "@Stay.Example"}, ".com"))
	assert.Equal(t, "sunrisepg.com", HostelDomain(docstore.Record{"name": "Sunrise PG"}, ".com"))
}

func TestDomainAllowed(t *testing.T) {
	hostel := docstore.Record{"name": "Sunrise PG", "adminEmail": "owner@sunrise.co"}

	assert.True(t, DomainAllowed("ravi@sunrisepg.com", hostel, nil, ".com"))
	assert.True(t, DomainAllowed("ravi@SUNRISE.co", hostel, nil, ".com"))
	assert.True(t, DomainAllowed("ravi@partner.org", hostel, []string{"partner.org"}, ".com"))
	assert.False(t, DomainAllowed("ravi@gmail.com", hostel, nil, ".com"))
	assert.False(t, DomainAllowed("not-an-email", hostel, nil, ".com"))
	assert.False(t, DomainAllowed("ravi@sunrisepg.com", nil, nil, ".com"))
}

func TestDomainAllowedAcceptsContactEmailDomain(t *testing.T) {
	hostel := docstore.Record{
		"name":         "Sunrise PG",
		"contactEmail": "priya@gmail.com",
		"adminEmail":   "priya.shah@sunrisepg.com",
	}

	assert.True(t, DomainAllowed("manager@gmail.com", hostel, nil, ".com"))
	assert.True(t, DomainAllowed("priya.shah@sunrisepg.com", hostel, nil, ".com"))
	assert.False(t, DomainAllowed("manager@yahoo.com", hostel, nil, ".com"))
	assert.False(t, DomainAllowed("x@", docstore.Record{"name": "Sunrise PG", "contactEmail": "broken"}, nil, ".com"))
}
