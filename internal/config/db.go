package config

// DB holds the database connection settings. GormEngine selects the driver,
// mysql or postgres; Extras is appended verbatim to the DSN.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string
}
