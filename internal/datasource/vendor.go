package datasource

import "strings"

// Vendor identifies a database product. The identifiers match the directory
// names used with the {vendor} location placeholder.
type Vendor string

const (
	VendorUnknown    Vendor = ""
	VendorPostgreSQL Vendor = "postgresql"
	VendorMySQL      Vendor = "mysql"
	VendorMariaDB    Vendor = "mariadb"
	VendorSQLite     Vendor = "sqlite"
	VendorH2         Vendor = "h2"
	VendorHSQLDB     Vendor = "hsqldb"
	VendorDerby      Vendor = "derby"
	VendorOracle     Vendor = "oracle"
	VendorSQLServer  Vendor = "sqlserver"
	VendorDB2        Vendor = "db2"
	VendorFirebird   Vendor = "firebird"
)

var schemeVendors = map[string]Vendor{
	"postgres":    VendorPostgreSQL,
	"postgresql":  VendorPostgreSQL,
	"mysql":       VendorMySQL,
	"mariadb":     VendorMariaDB,
	"sqlite":      VendorSQLite,
	"sqlite3":     VendorSQLite,
	"h2":          VendorH2,
	"hsqldb":      VendorHSQLDB,
	"derby":       VendorDerby,
	"oracle":      VendorOracle,
	"sqlserver":   VendorSQLServer,
	"mssql":       VendorSQLServer,
	"db2":         VendorDB2,
	"firebird":    VendorFirebird,
	"firebirdsql": VendorFirebird,
}

// DetectVendor derives the vendor from a connection URL. Both plain URLs, e.g.
// "postgres://host/db", and JDBC-style URLs, e.g. "jdbc:postgresql://host/db",
// are recognized.
func DetectVendor(url string) Vendor {
	scheme, _ := splitScheme(url)
	return schemeVendors[scheme]
}

// splitScheme returns the lower-cased scheme of the given URL, without any
// "jdbc:" prefix, and the remainder after the scheme's colon.
func splitScheme(url string) (string, string) {
	url = strings.TrimSpace(url)
	if len(url) >= 5 && strings.EqualFold(url[:5], "jdbc:") {
		url = url[5:]
	}
	idx := strings.IndexByte(url, ':')
	if idx <= 0 {
		return "", url
	}
	return strings.ToLower(url[:idx]), url[idx+1:]
}
