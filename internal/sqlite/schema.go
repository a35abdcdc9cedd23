package sqlite

// Table DDL keyed by table name. Keys are INTEGER PRIMARY KEY so that
// LastInsertId reports the new row's id.
var tableDDL = map[string]string{
	"users": `CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password TEXT,
    salt TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,

	"products": `CREATE TABLE IF NOT EXISTS products (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    price TEXT NOT NULL DEFAULT '0',
    stock INTEGER NOT NULL DEFAULT 0,
    owner_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
}

// indexDDL lists CREATE INDEX statements run after the tables exist.
var indexDDL = map[string][]string{
	"products": {`CREATE INDEX IF NOT EXISTS idx_products_owner ON products(owner_id);`},
}
