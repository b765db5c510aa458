package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectVendor(t *testing.T) {
	for _, tc := range []struct {
		url      string
		expected Vendor
	}{
		{url: "postgres://localhost:5432/app", expected: VendorPostgreSQL},
		{url: "jdbc:postgresql://db:5432/billing", expected: VendorPostgreSQL},
		{url: "JDBC:MySQL://db/app", expected: VendorMySQL},
		{url: "jdbc:mariadb://db/app", expected: VendorMariaDB},
		{url: "sqlite::memory:", expected: VendorSQLite},
		{url: "jdbc:h2:mem:auth", expected: VendorH2},
		{url: "jdbc:sqlserver://db;databaseName=app", expected: VendorSQLServer},
		{url: "jdbc:acme://db/app", expected: VendorUnknown},
		{url: "", expected: VendorUnknown},
		{url: "no-scheme", expected: VendorUnknown},
	} {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectVendor(tc.url))
		})
	}
}
